// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/entitlements/internal/billing"
	"github.com/carterperez-dev/entitlements/internal/cache"
	"github.com/carterperez-dev/entitlements/internal/core"
)

// StoreReader is the slice of the billing repository the resolver
// needs; reads only.
type StoreReader interface {
	GetSubscription(
		ctx context.Context,
		communityID string,
	) (*billing.Subscription, error)
	GetActiveWaiver(
		ctx context.Context,
		communityID string,
	) (*billing.FeeWaiver, error)
}

type Config struct {
	CacheTTL   time.Duration
	UpgradeURL string
}

// Service resolves effective entitlements cache-first and serves
// feature-gate decisions.
type Service struct {
	store  StoreReader
	cache  cache.Store
	config Config
	now    func() time.Time
}

func NewService(store StoreReader, cacheStore cache.Store, config Config) *Service {
	return &Service{
		store:  store,
		cache:  cacheStore,
		config: config,
		now:    time.Now,
	}
}

// GetEntitlements returns the community's effective tier and feature
// set. Cache misses and cache outages both fall through to the store;
// the computed snapshot is written back best-effort.
func (s *Service) GetEntitlements(
	ctx context.Context,
	communityID string,
) (*Entitlements, error) {
	key := cache.EntitlementsKey(communityID)

	if raw, found := s.cache.Get(ctx, key); found {
		var cached Entitlements
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
		// Unparseable snapshot: drop it and recompute.
		s.cache.Delete(ctx, key)
	}

	resolved, err := s.resolve(ctx, communityID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(resolved); err == nil {
		s.cache.Set(ctx, key, string(raw), s.config.CacheTTL)
	}

	return resolved, nil
}

// resolve computes entitlements from the store. Priority: active
// waiver, then active or in-grace subscription, then the free tier.
func (s *Service) resolve(
	ctx context.Context,
	communityID string,
) (*Entitlements, error) {
	waiver, err := s.store.GetActiveWaiver(ctx, communityID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("resolve entitlements: %w", err)
	}
	if waiver != nil {
		return s.projection(communityID, waiver.Tier, SourceWaiver, false, nil), nil
	}

	sub, err := s.store.GetSubscription(ctx, communityID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("resolve entitlements: %w", err)
	}

	if sub != nil {
		now := s.now()
		if sub.IsActive() {
			return s.projection(
				communityID, sub.Tier, SourceSubscription, false, nil,
			), nil
		}
		if sub.InGracePeriod(now) {
			return s.projection(
				communityID, sub.Tier, SourceSubscription, true, sub.GraceUntil,
			), nil
		}
	}

	return s.projection(communityID, billing.TierStarter, SourceFree, false, nil), nil
}

func (s *Service) projection(
	communityID string,
	tier billing.Tier,
	source string,
	inGrace bool,
	graceUntil *time.Time,
) *Entitlements {
	return &Entitlements{
		CommunityID:   communityID,
		Tier:          tier,
		MaxMembers:    MaxMembersFor(tier),
		Features:      FeaturesFor(tier),
		Source:        source,
		InGracePeriod: inGrace,
		GraceUntil:    graceUntil,
	}
}

// CheckAccess decides whether the community may use one feature.
func (s *Service) CheckAccess(
	ctx context.Context,
	communityID string,
	feature Feature,
) (*AccessResult, error) {
	ents, err := s.GetEntitlements(ctx, communityID)
	if err != nil {
		return nil, err
	}

	return s.gate(ents, feature)
}

// CheckAccessBatch gates several features against a single entitlement
// fetch. One lookup regardless of feature count.
func (s *Service) CheckAccessBatch(
	ctx context.Context,
	communityID string,
	features []Feature,
) (map[Feature]*AccessResult, error) {
	ents, err := s.GetEntitlements(ctx, communityID)
	if err != nil {
		return nil, err
	}

	results := make(map[Feature]*AccessResult, len(features))
	for _, feature := range features {
		result, err := s.gate(ents, feature)
		if err != nil {
			return nil, err
		}
		results[feature] = result
	}

	return results, nil
}

func (s *Service) gate(
	ents *Entitlements,
	feature Feature,
) (*AccessResult, error) {
	requiredTier, ok := MinTierFor(feature)
	if !ok {
		return nil, fmt.Errorf(
			"check access: unknown feature %q: %w",
			feature,
			core.ErrInvalidInput,
		)
	}

	result := &AccessResult{
		CanAccess:    ents.Tier.AtLeast(requiredTier),
		CurrentTier:  ents.Tier,
		RequiredTier: requiredTier,
	}

	if !result.CanAccess {
		result.Reason = fmt.Sprintf(
			"%s requires the %s tier or higher", feature, requiredTier,
		)
		result.UpgradeURL = fmt.Sprintf(s.config.UpgradeURL, ents.CommunityID)
	}

	return result, nil
}

// Invalidate drops the cached snapshot. The ingestion pipeline calls
// this after every subscription mutation; waiver management flows may
// call it too.
func (s *Service) Invalidate(ctx context.Context, communityID string) {
	cache.InvalidateEntitlements(ctx, s.cache, communityID)
	slog.Debug("entitlements invalidated", "community_id", communityID)
}
