// AngelaMos | 2026
// entity.go

package entitlement

import (
	"time"

	"github.com/carterperez-dev/entitlements/internal/billing"
)

const (
	SourceWaiver       = "waiver"
	SourceSubscription = "subscription"
	SourceFree         = "free"
)

// Entitlements is the resolved projection for one community. It is
// always derivable fresh from the store; the cached copy is an
// optimization, never authoritative.
type Entitlements struct {
	CommunityID   string       `json:"community_id"`
	Tier          billing.Tier `json:"tier"`
	MaxMembers    int          `json:"max_members"`
	Features      []Feature    `json:"features"`
	Source        string       `json:"source"`
	InGracePeriod bool         `json:"in_grace_period"`
	GraceUntil    *time.Time   `json:"grace_until,omitempty"`
}

func (e *Entitlements) HasFeature(feature Feature) bool {
	minTier, ok := MinTierFor(feature)
	if !ok {
		return false
	}
	return e.Tier.AtLeast(minTier)
}

// AccessResult is the feature-gate decision returned to callers.
// Reason and UpgradeURL are only set on denial and never carry
// internal error detail.
type AccessResult struct {
	CanAccess    bool         `json:"can_access"`
	CurrentTier  billing.Tier `json:"current_tier"`
	RequiredTier billing.Tier `json:"required_tier"`
	UpgradeURL   string       `json:"upgrade_url,omitempty"`
	Reason       string       `json:"reason,omitempty"`
}
