// AngelaMos | 2026
// service_test.go

package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/billing"
	"github.com/carterperez-dev/entitlements/internal/cache"
	"github.com/carterperez-dev/entitlements/internal/core"
)

type fakeStore struct {
	sub    *billing.Subscription
	waiver *billing.FeeWaiver

	subErr    error
	waiverErr error

	subCalls    int
	waiverCalls int
}

func (f *fakeStore) GetSubscription(
	_ context.Context,
	_ string,
) (*billing.Subscription, error) {
	f.subCalls++
	if f.subErr != nil {
		return nil, f.subErr
	}
	if f.sub == nil {
		return nil, core.ErrNotFound
	}
	return f.sub, nil
}

func (f *fakeStore) GetActiveWaiver(
	_ context.Context,
	_ string,
) (*billing.FeeWaiver, error) {
	f.waiverCalls++
	if f.waiverErr != nil {
		return nil, f.waiverErr
	}
	if f.waiver == nil {
		return nil, core.ErrNotFound
	}
	return f.waiver, nil
}

func newTestService(store StoreReader, cacheStore cache.Store) *Service {
	return NewService(store, cacheStore, Config{
		CacheTTL:   5 * time.Minute,
		UpgradeURL: "https://example.com/upgrade?community=%s",
	})
}

func TestGetEntitlementsFreeFallback(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, cache.NewMemory())

	ents, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)

	assert.Equal(t, billing.TierStarter, ents.Tier)
	assert.Equal(t, SourceFree, ents.Source)
	assert.False(t, ents.InGracePeriod)
	assert.Equal(t, MaxMembersFor(billing.TierStarter), ents.MaxMembers)
	assert.ElementsMatch(t,
		FeaturesFor(billing.TierStarter), ents.Features)
}

func TestGetEntitlementsActiveSubscription(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierPremium,
			Status:      billing.StatusActive,
		},
	}
	svc := newTestService(store, cache.NewMemory())

	ents, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)

	assert.Equal(t, billing.TierPremium, ents.Tier)
	assert.Equal(t, SourceSubscription, ents.Source)
	assert.True(t, ents.HasFeature(FeatureAdvancedAnalytics))
	assert.False(t, ents.HasFeature(FeatureSSO))
}

func TestGetEntitlementsWaiverBeatsSubscription(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierBasic,
			Status:      billing.StatusActive,
		},
		waiver: &billing.FeeWaiver{
			CommunityID: "comm_1",
			Tier:        billing.TierElite,
		},
	}
	svc := newTestService(store, cache.NewMemory())

	ents, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)

	assert.Equal(t, billing.TierElite, ents.Tier)
	assert.Equal(t, SourceWaiver, ents.Source)
	// The waiver short-circuits the subscription lookup.
	assert.Equal(t, 0, store.subCalls)
}

func TestGetEntitlementsGracePeriodBoundary(t *testing.T) {
	ctx := context.Background()
	graceUntil := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierExclusive,
			Status:      billing.StatusPastDue,
			GraceUntil:  &graceUntil,
		},
	}
	svc := newTestService(store, cache.NewMemory())

	svc.now = func() time.Time { return graceUntil.Add(-time.Second) }
	ents, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, billing.TierExclusive, ents.Tier)
	assert.Equal(t, SourceSubscription, ents.Source)
	assert.True(t, ents.InGracePeriod)
	require.NotNil(t, ents.GraceUntil)
	assert.True(t, ents.GraceUntil.Equal(graceUntil))

	// One second past the deadline the community drops to free. The
	// snapshot cached during grace is bypassed with a fresh cache.
	svc = newTestService(store, cache.NewMemory())
	svc.now = func() time.Time { return graceUntil.Add(time.Second) }
	ents, err = svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, billing.TierStarter, ents.Tier)
	assert.Equal(t, SourceFree, ents.Source)
	assert.False(t, ents.InGracePeriod)
}

func TestGetEntitlementsCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierPremium,
			Status:      billing.StatusActive,
		},
	}
	mem := cache.NewMemory()
	svc := newTestService(store, mem)

	first, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)
	require.Equal(t, 1, store.subCalls)

	second, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.subCalls, "second read should hit the cache")
	assert.Equal(t, first, second)

	svc.Invalidate(ctx, "comm_1")

	_, err = svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.subCalls)
}

func TestGetEntitlementsCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierPremium,
			Status:      billing.StatusActive,
		},
	}
	mem := cache.NewMemory()
	mem.SetUnavailable(true)
	svc := newTestService(store, mem)

	for range 3 {
		ents, err := svc.GetEntitlements(ctx, "comm_1")
		require.NoError(t, err)
		assert.Equal(t, billing.TierPremium, ents.Tier)
	}

	// Every read fell through to the store.
	assert.Equal(t, 3, store.subCalls)
}

func TestGetEntitlementsDropsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierPremium,
			Status:      billing.StatusActive,
		},
	}
	mem := cache.NewMemory()
	mem.Set(ctx, cache.EntitlementsKey("comm_1"), "{not json", time.Minute)
	svc := newTestService(store, mem)

	ents, err := svc.GetEntitlements(ctx, "comm_1")
	require.NoError(t, err)
	assert.Equal(t, billing.TierPremium, ents.Tier)
	assert.Equal(t, 1, store.subCalls)
}

func TestGetEntitlementsStoreError(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{waiverErr: errors.New("db down")}
	svc := newTestService(store, cache.NewMemory())

	_, err := svc.GetEntitlements(ctx, "comm_1")
	assert.Error(t, err)
}

func TestCheckAccessDenied(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierBasic,
			Status:      billing.StatusActive,
		},
	}
	svc := newTestService(store, cache.NewMemory())

	result, err := svc.CheckAccess(ctx, "comm_1", FeatureSSO)
	require.NoError(t, err)

	assert.False(t, result.CanAccess)
	assert.Equal(t, billing.TierBasic, result.CurrentTier)
	assert.Equal(t, billing.TierEnterprise, result.RequiredTier)
	assert.Equal(t,
		"sso requires the enterprise tier or higher", result.Reason)
	assert.Equal(t,
		"https://example.com/upgrade?community=comm_1", result.UpgradeURL)
}

func TestCheckAccessGranted(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierEnterprise,
			Status:      billing.StatusActive,
		},
	}
	svc := newTestService(store, cache.NewMemory())

	result, err := svc.CheckAccess(ctx, "comm_1", FeatureSSO)
	require.NoError(t, err)

	assert.True(t, result.CanAccess)
	assert.Empty(t, result.Reason)
	assert.Empty(t, result.UpgradeURL)
}

func TestCheckAccessUnknownFeature(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{}, cache.NewMemory())

	_, err := svc.CheckAccess(ctx, "comm_1", "time_travel")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCheckAccessBatchSingleFetch(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		sub: &billing.Subscription{
			CommunityID: "comm_1",
			Tier:        billing.TierPremium,
			Status:      billing.StatusActive,
		},
	}
	mem := cache.NewMemory()
	mem.SetUnavailable(true)
	svc := newTestService(store, mem)

	results, err := svc.CheckAccessBatch(ctx, "comm_1", []Feature{
		FeatureLeaderboards,
		FeatureAPIAccess,
		FeatureSSO,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[FeatureLeaderboards].CanAccess)
	assert.True(t, results[FeatureAPIAccess].CanAccess)
	assert.False(t, results[FeatureSSO].CanAccess)

	// One store round-trip regardless of feature count, even with the
	// cache down.
	assert.Equal(t, 1, store.subCalls)
	assert.Equal(t, 1, store.waiverCalls)
}
