// AngelaMos | 2026
// repository.go

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/entitlements/internal/core"
)

// Repository is the durable entitlement store: source of truth for
// subscriptions, waivers, and the processed-event ledger.
type Repository interface {
	GetSubscription(
		ctx context.Context,
		communityID string,
	) (*Subscription, error)
	GetActiveWaiver(
		ctx context.Context,
		communityID string,
	) (*FeeWaiver, error)
	UpsertSubscription(
		ctx context.Context,
		communityID string,
		patch SubscriptionPatch,
	) error
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	RecordProcessedEvent(
		ctx context.Context,
		event ProcessedEvent,
		audits []AuditEvent,
	) (bool, error)
}

// SubscriptionPatch is a partial update carrying absolute values only.
// Nil fields are left untouched; ClearGraceUntil beats GraceUntil.
// Writes are last-writer-wins so re-ordered deliveries converge.
type SubscriptionPatch struct {
	Tier               *Tier
	Status             *string
	GraceUntil         *time.Time
	ClearGraceUntil    bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSubscription(
	ctx context.Context,
	communityID string,
) (*Subscription, error) {
	query := `
		SELECT community_id, tier, status, grace_until,
		       current_period_start, current_period_end,
		       created_at, updated_at
		FROM subscriptions
		WHERE community_id = $1`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) GetActiveWaiver(
	ctx context.Context,
	communityID string,
) (*FeeWaiver, error) {
	// At most one waiver should be active; if several are, the
	// highest-tier one wins.
	query := `
		SELECT id, community_id, tier, expires_at, revoked_at, created_at
		FROM fee_waivers
		WHERE community_id = $1
		  AND revoked_at IS NULL
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY CASE tier
			WHEN 'enterprise' THEN 5
			WHEN 'elite' THEN 4
			WHEN 'exclusive' THEN 3
			WHEN 'premium' THEN 2
			WHEN 'basic' THEN 1
			ELSE 0
		END DESC
		LIMIT 1`

	var waiver FeeWaiver
	err := r.db.GetContext(ctx, &waiver, query, communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get active waiver: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get active waiver: %w", err)
	}

	return &waiver, nil
}

func (r *repository) UpsertSubscription(
	ctx context.Context,
	communityID string,
	patch SubscriptionPatch,
) error {
	// Field-level absolute SETs, never deltas. COALESCE keeps fields
	// the event did not carry; concurrent writers degrade to
	// last-writer-wins without corruption.
	query := `
		INSERT INTO subscriptions (
			community_id, tier, status, grace_until,
			current_period_start, current_period_end
		)
		VALUES (
			$1,
			COALESCE($2, 'starter'),
			COALESCE($3, 'active'),
			CASE WHEN $7 THEN NULL ELSE $4 END,
			$5, $6
		)
		ON CONFLICT (community_id) DO UPDATE SET
			tier = COALESCE($2, subscriptions.tier),
			status = COALESCE($3, subscriptions.status),
			grace_until = CASE
				WHEN $7 THEN NULL
				WHEN $4 IS NOT NULL THEN $4
				ELSE subscriptions.grace_until
			END,
			current_period_start =
				COALESCE($5, subscriptions.current_period_start),
			current_period_end =
				COALESCE($6, subscriptions.current_period_end),
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		communityID,
		patch.Tier,
		patch.Status,
		patch.GraceUntil,
		patch.CurrentPeriodStart,
		patch.CurrentPeriodEnd,
		patch.ClearGraceUntil,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	return nil
}

func (r *repository) IsEventProcessed(
	ctx context.Context,
	eventID string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM webhook_events WHERE event_id = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, eventID); err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}

	return exists, nil
}

// RecordProcessedEvent reports whether this delivery won the unique
// insert. Audit rows ride the same transaction and are only written by
// the winner, so audits stay exactly-once.
func (r *repository) RecordProcessedEvent(
	ctx context.Context,
	event ProcessedEvent,
	audits []AuditEvent,
) (bool, error) {
	var won bool

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO webhook_events (event_id, event_type, outcome)
			VALUES ($1, $2, $3)
			ON CONFLICT (event_id) DO NOTHING`,
			event.EventID,
			event.EventType,
			event.Outcome,
		)
		if err != nil {
			return fmt.Errorf("insert webhook event: %w", err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert webhook event: %w", err)
		}
		if inserted == 0 {
			return nil
		}
		won = true

		for _, audit := range audits {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO billing_audit_log (id, community_id, kind, details)
				VALUES ($1, $2, $3, $4)`,
				audit.ID,
				audit.CommunityID,
				audit.Kind,
				audit.Details,
			)
			if err != nil {
				return fmt.Errorf("insert audit event: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("record processed event: %w", err)
	}

	return won, nil
}
