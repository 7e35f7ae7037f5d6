// AngelaMos | 2026
// processor.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/entitlements/internal/cache"
)

// Outcome classifies a webhook delivery. Duplicate is not an error:
// the provider delivers at least once and every instance may see the
// same event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// ErrInvalidSignature is terminal: the provider must not retry a forged
// or corrupted envelope.
var ErrInvalidSignature = errors.New("invalid webhook signature")

type ProcessorConfig struct {
	WebhookSecret  string
	GracePeriod    time.Duration
	LockTTL        time.Duration
	IdempotencyTTL time.Duration
}

// Processor runs the webhook ingestion pipeline. Multiple instances
// may process the same event concurrently; correctness rests on the
// distributed lock plus the unique-keyed processed-event record, not
// on any in-process synchronization.
type Processor struct {
	repo       Repository
	store      cache.Store
	config     ProcessorConfig
	instanceID string
	now        func() time.Time
}

func NewProcessor(
	repo Repository,
	store cache.Store,
	config ProcessorConfig,
) *Processor {
	return &Processor{
		repo:       repo,
		store:      store,
		config:     config,
		instanceID: uuid.New().String(),
		now:        time.Now,
	}
}

// Process applies one webhook envelope exactly once. Stages run in
// strict order: verify, cache duplicate check, durable duplicate
// check, lock, apply, durable record, cache invalidate+mark. The lock
// is released on every path once acquired; its TTL covers a crash
// mid-flight.
func (p *Processor) Process(
	ctx context.Context,
	env Envelope,
) (Outcome, error) {
	if !env.VerifySignature(p.config.WebhookSecret) {
		slog.Warn("webhook signature rejected", "event_id", env.EventID)
		return OutcomeRejected, ErrInvalidSignature
	}

	if cache.IsEventProcessed(ctx, p.store, env.EventID) {
		return OutcomeDuplicate, nil
	}

	processed, err := p.repo.IsEventProcessed(ctx, env.EventID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("durable duplicate check: %w", err)
	}
	if processed {
		// Cache was cold or stale; repopulate the marker.
		cache.MarkEventProcessed(
			ctx, p.store, env.EventID, p.config.IdempotencyTTL,
		)
		return OutcomeDuplicate, nil
	}

	lock := cache.AcquireEventLock(
		ctx, p.store, env.EventID, p.instanceID, p.config.LockTTL,
	)
	if lock == cache.LockHeld {
		return OutcomeDuplicate, nil
	}
	if lock == cache.LockUnavailable {
		// Fail open: the durable check above already ran, and the
		// unique insert in RecordProcessedEvent bounds any race.
		slog.Warn("event lock unavailable, proceeding",
			"event_id", env.EventID,
		)
	}
	defer cache.ReleaseEventLock(ctx, p.store, env.EventID)

	event, err := env.Decode()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("decode event: %w", err)
	}

	patch, audits := p.apply(event)

	if err := p.repo.UpsertSubscription(ctx, event.Community(), patch); err != nil {
		return OutcomeFailed, fmt.Errorf(
			"apply %s: %w", env.EventType, err,
		)
	}

	record := ProcessedEvent{
		EventID:   env.EventID,
		EventType: string(env.EventType),
		Outcome:   string(OutcomeProcessed),
	}
	won, err := p.repo.RecordProcessedEvent(ctx, record, audits)
	if err != nil {
		// Surface the failure so the provider redelivers; the cache
		// marker is deliberately not set on this path.
		return OutcomeFailed, fmt.Errorf(
			"record %s: %w", env.EventType, err,
		)
	}

	cache.InvalidateEntitlements(ctx, p.store, event.Community())
	cache.MarkEventProcessed(ctx, p.store, env.EventID, p.config.IdempotencyTTL)

	if !won {
		// Another delivery recorded this event first; the patch we
		// applied was the same absolute values, so state is intact.
		return OutcomeDuplicate, nil
	}

	slog.Info("webhook event processed",
		"event_id", env.EventID,
		"event_type", env.EventType,
		"community_id", event.Community(),
	)

	return OutcomeProcessed, nil
}

// apply maps an event to the absolute-value subscription patch and the
// audit entries for its state transitions. Patches carry no deltas, so
// re-applying or re-ordering events converges to the same state.
func (p *Processor) apply(event Event) (SubscriptionPatch, []AuditEvent) {
	switch e := event.(type) {
	case CheckoutCompleted:
		tier := e.Tier
		status := StatusActive
		return SubscriptionPatch{
				Tier:               &tier,
				Status:             &status,
				ClearGraceUntil:    true,
				CurrentPeriodStart: e.PeriodStart,
				CurrentPeriodEnd:   e.PeriodEnd,
			}, []AuditEvent{
				p.audit(e.CommunityID, AuditSubscriptionCreated,
					fmt.Sprintf("checkout completed, tier %s", tier)),
			}

	case InvoicePaid:
		status := StatusActive
		return SubscriptionPatch{
				Status:             &status,
				ClearGraceUntil:    true,
				CurrentPeriodStart: e.PeriodStart,
				CurrentPeriodEnd:   e.PeriodEnd,
			}, []AuditEvent{
				p.audit(e.CommunityID, AuditPaymentSucceeded,
					"invoice paid"),
			}

	case InvoicePaymentFailed:
		status := StatusPastDue
		graceUntil := p.now().Add(p.config.GracePeriod)
		return SubscriptionPatch{
				Status:     &status,
				GraceUntil: &graceUntil,
			}, []AuditEvent{
				p.audit(e.CommunityID, AuditPaymentFailed,
					"invoice payment failed"),
				p.audit(e.CommunityID, AuditGracePeriodStarted,
					fmt.Sprintf("grace period until %s",
						graceUntil.Format(time.RFC3339))),
			}

	case SubscriptionUpdated:
		tier := e.Tier
		status := e.Status
		patch := SubscriptionPatch{
			Tier:               &tier,
			Status:             &status,
			CurrentPeriodStart: e.PeriodStart,
			CurrentPeriodEnd:   e.PeriodEnd,
		}
		if status == StatusActive {
			patch.ClearGraceUntil = true
		}
		return patch, []AuditEvent{
			p.audit(e.CommunityID, AuditSubscriptionUpdated,
				fmt.Sprintf("tier %s, status %s", tier, status)),
		}

	case SubscriptionDeleted:
		tier := TierStarter
		status := StatusCanceled
		return SubscriptionPatch{
				Tier:            &tier,
				Status:          &status,
				ClearGraceUntil: true,
			}, []AuditEvent{
				p.audit(e.CommunityID, AuditSubscriptionCanceled,
					"subscription deleted"),
			}

	default:
		// Decode only emits the five kinds above.
		panic(fmt.Sprintf("unhandled event type %T", event))
	}
}

func (p *Processor) audit(communityID, kind, details string) AuditEvent {
	return AuditEvent{
		ID:          uuid.New().String(),
		CommunityID: communityID,
		Kind:        kind,
		Details:     details,
	}
}
