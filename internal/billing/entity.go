// AngelaMos | 2026
// entity.go

package billing

import (
	"time"
)

// Tier is an ordered subscription level. The zero rank (starter) is the
// free tier every community falls back to.
type Tier string

const (
	TierStarter    Tier = "starter"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierExclusive  Tier = "exclusive"
	TierElite      Tier = "elite"
	TierEnterprise Tier = "enterprise"
)

var tierRanks = map[Tier]int{
	TierStarter:    0,
	TierBasic:      1,
	TierPremium:    2,
	TierExclusive:  3,
	TierElite:      4,
	TierEnterprise: 5,
}

// Rank places the tier in the total order. Unknown tiers rank as
// starter so a corrupted row can never grant access.
func (t Tier) Rank() int {
	return tierRanks[t]
}

func (t Tier) AtLeast(other Tier) bool {
	return t.Rank() >= other.Rank()
}

func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

func Tiers() []Tier {
	return []Tier{
		TierStarter,
		TierBasic,
		TierPremium,
		TierExclusive,
		TierElite,
		TierEnterprise,
	}
}

const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Subscription is the single billing relationship per community.
// Canceled rows are kept for audit, never deleted.
type Subscription struct {
	CommunityID        string     `db:"community_id"`
	Tier               Tier       `db:"tier"`
	Status             string     `db:"status"`
	GraceUntil         *time.Time `db:"grace_until"`
	CurrentPeriodStart *time.Time `db:"current_period_start"`
	CurrentPeriodEnd   *time.Time `db:"current_period_end"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) InGracePeriod(now time.Time) bool {
	return s.Status == StatusPastDue &&
		s.GraceUntil != nil &&
		s.GraceUntil.After(now)
}

// FeeWaiver grants a tier independent of payment. Created and revoked
// outside this service; read-only here.
type FeeWaiver struct {
	ID          string     `db:"id"`
	CommunityID string     `db:"community_id"`
	Tier        Tier       `db:"tier"`
	ExpiresAt   *time.Time `db:"expires_at"`
	RevokedAt   *time.Time `db:"revoked_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// ProcessedEvent is the durable idempotency record: one row per webhook
// event that has been fully handled, unique on event id.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	Outcome     string    `db:"outcome"`
	ProcessedAt time.Time `db:"processed_at"`
}

const (
	AuditSubscriptionCreated  = "subscription_created"
	AuditSubscriptionUpdated  = "subscription_updated"
	AuditSubscriptionCanceled = "subscription_canceled"
	AuditPaymentSucceeded     = "payment_succeeded"
	AuditPaymentFailed        = "payment_failed"
	AuditGracePeriodStarted   = "grace_period_started"
)

type AuditEvent struct {
	ID          string    `db:"id"`
	CommunityID string    `db:"community_id"`
	Kind        string    `db:"kind"`
	Details     string    `db:"details"`
	CreatedAt   time.Time `db:"created_at"`
}
