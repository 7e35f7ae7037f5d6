// AngelaMos | 2026
// scenario_test.go

package entitlement

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/entitlements/internal/billing"
	"github.com/carterperez-dev/entitlements/internal/cache"
	"github.com/carterperez-dev/entitlements/internal/core"
)

const scenarioSecret = "whsec_scenario"

// pipelineStore backs both the webhook processor and the resolver with
// one shared state, applying patches the way the SQL upsert does.
type pipelineStore struct {
	mu        sync.Mutex
	sub       *billing.Subscription
	processed map[string]bool
	audits    []billing.AuditEvent
}

func newPipelineStore() *pipelineStore {
	return &pipelineStore{processed: make(map[string]bool)}
}

func (s *pipelineStore) GetSubscription(
	_ context.Context,
	_ string,
) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return nil, core.ErrNotFound
	}
	copied := *s.sub
	return &copied, nil
}

func (s *pipelineStore) GetActiveWaiver(
	_ context.Context,
	_ string,
) (*billing.FeeWaiver, error) {
	return nil, core.ErrNotFound
}

func (s *pipelineStore) UpsertSubscription(
	_ context.Context,
	communityID string,
	patch billing.SubscriptionPatch,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		s.sub = &billing.Subscription{
			CommunityID: communityID,
			Tier:        billing.TierStarter,
			Status:      billing.StatusActive,
		}
	}
	if patch.Tier != nil {
		s.sub.Tier = *patch.Tier
	}
	if patch.Status != nil {
		s.sub.Status = *patch.Status
	}
	switch {
	case patch.ClearGraceUntil:
		s.sub.GraceUntil = nil
	case patch.GraceUntil != nil:
		s.sub.GraceUntil = patch.GraceUntil
	}
	if patch.CurrentPeriodStart != nil {
		s.sub.CurrentPeriodStart = patch.CurrentPeriodStart
	}
	if patch.CurrentPeriodEnd != nil {
		s.sub.CurrentPeriodEnd = patch.CurrentPeriodEnd
	}
	return nil
}

func (s *pipelineStore) IsEventProcessed(
	_ context.Context,
	eventID string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

func (s *pipelineStore) RecordProcessedEvent(
	_ context.Context,
	event billing.ProcessedEvent,
	audits []billing.AuditEvent,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed[event.EventID] {
		return false, nil
	}
	s.processed[event.EventID] = true
	s.audits = append(s.audits, audits...)
	return true, nil
}

func deliver(
	t *testing.T,
	p *billing.Processor,
	eventID string,
	eventType billing.EventType,
	payload any,
) billing.Outcome {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	outcome, err := p.Process(context.Background(), billing.Envelope{
		EventID:   eventID,
		EventType: eventType,
		Payload:   raw,
		Signature: billing.Sign(scenarioSecret, eventID, raw),
	})
	require.NoError(t, err)
	return outcome
}

func TestCheckoutThenPaymentFailureLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newPipelineStore()
	mem := cache.NewMemory()

	processor := billing.NewProcessor(store, mem, billing.ProcessorConfig{
		WebhookSecret:  scenarioSecret,
		GracePeriod:    24 * time.Hour,
		LockTTL:        30 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	})
	svc := newTestService(store, mem)

	outcome := deliver(t, processor, "evt_1",
		billing.EventCheckoutCompleted, billing.CheckoutCompleted{
			CommunityID: "t1",
			Tier:        billing.TierPremium,
		})
	require.Equal(t, billing.OutcomeProcessed, outcome)

	result, err := svc.CheckAccess(ctx, "t1", FeatureAdvancedAnalytics)
	require.NoError(t, err)
	assert.True(t, result.CanAccess)
	assert.Equal(t, billing.TierPremium, result.CurrentTier)

	// Payment fails at time T; the community keeps its tier for 24h.
	failedAt := time.Now()
	outcome = deliver(t, processor, "evt_2",
		billing.EventInvoicePaymentFailed, billing.InvoicePaymentFailed{
			CommunityID: "t1",
		})
	require.Equal(t, billing.OutcomeProcessed, outcome)

	// The processor invalidated the snapshot, so this read is fresh.
	svc.now = func() time.Time { return failedAt.Add(time.Hour) }
	result, err = svc.CheckAccess(ctx, "t1", FeatureAdvancedAnalytics)
	require.NoError(t, err)
	assert.True(t, result.CanAccess)

	ents, err := svc.GetEntitlements(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, ents.InGracePeriod)

	// Past the deadline the community is free tier. The short snapshot
	// TTL expires long before then; model that with an invalidate.
	svc.Invalidate(ctx, "t1")
	svc.now = func() time.Time { return failedAt.Add(25 * time.Hour) }

	result, err = svc.CheckAccess(ctx, "t1", FeatureAdvancedAnalytics)
	require.NoError(t, err)
	assert.False(t, result.CanAccess)
	assert.Equal(t, billing.TierStarter, result.CurrentTier)
	assert.Equal(t, billing.TierPremium, result.RequiredTier)

	// Both transitions left their audit trail exactly once.
	kinds := make([]string, 0, len(store.audits))
	for _, a := range store.audits {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []string{
		billing.AuditSubscriptionCreated,
		billing.AuditPaymentFailed,
		billing.AuditGracePeriodStarted,
	}, kinds)
}

func TestRecoveryAfterGrace(t *testing.T) {
	ctx := context.Background()
	store := newPipelineStore()
	mem := cache.NewMemory()

	processor := billing.NewProcessor(store, mem, billing.ProcessorConfig{
		WebhookSecret:  scenarioSecret,
		GracePeriod:    24 * time.Hour,
		LockTTL:        30 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	})
	svc := newTestService(store, mem)

	deliver(t, processor, "evt_1",
		billing.EventCheckoutCompleted, billing.CheckoutCompleted{
			CommunityID: "t1",
			Tier:        billing.TierElite,
		})
	deliver(t, processor, "evt_2",
		billing.EventInvoicePaymentFailed, billing.InvoicePaymentFailed{
			CommunityID: "t1",
		})

	// The retried payment clears the grace deadline entirely.
	deliver(t, processor, "evt_3",
		billing.EventInvoicePaid, billing.InvoicePaid{CommunityID: "t1"})

	ents, err := svc.GetEntitlements(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, billing.TierElite, ents.Tier)
	assert.False(t, ents.InGracePeriod)
	assert.Nil(t, ents.GraceUntil)

	require.NotNil(t, store.sub)
	assert.Equal(t, billing.StatusActive, store.sub.Status)
	assert.Nil(t, store.sub.GraceUntil)
}
