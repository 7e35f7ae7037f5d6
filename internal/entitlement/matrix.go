// AngelaMos | 2026
// matrix.go

package entitlement

import (
	"github.com/carterperez-dev/entitlements/internal/billing"
)

// Feature is a gated product capability. The matrix below is the only
// place a feature's minimum tier is defined.
type Feature string

const (
	FeatureLeaderboards      Feature = "leaderboards"
	FeatureScheduledEvents   Feature = "scheduled_events"
	FeatureCustomBranding    Feature = "custom_branding"
	FeatureAdvancedAnalytics Feature = "advanced_analytics"
	FeatureBulkMessaging     Feature = "bulk_messaging"
	FeatureAPIAccess         Feature = "api_access"
	FeatureWebhooks          Feature = "webhooks"
	FeatureWhiteLabel        Feature = "white_label"
	FeaturePrioritySupport   Feature = "priority_support"
	FeatureAuditLogExport    Feature = "audit_log_export"
	FeatureSSO               Feature = "sso"
	FeatureDedicatedSupport  Feature = "dedicated_support"
)

// featureMatrix maps each feature to the minimum tier that may use it.
// A community at tier T gets every feature whose minimum ranks at or
// below T; there are no per-feature exceptions.
var featureMatrix = map[Feature]billing.Tier{
	FeatureLeaderboards:      billing.TierStarter,
	FeatureScheduledEvents:   billing.TierStarter,
	FeatureCustomBranding:    billing.TierBasic,
	FeatureAdvancedAnalytics: billing.TierPremium,
	FeatureBulkMessaging:     billing.TierPremium,
	FeatureAPIAccess:         billing.TierPremium,
	FeatureWebhooks:          billing.TierExclusive,
	FeatureWhiteLabel:        billing.TierExclusive,
	FeaturePrioritySupport:   billing.TierElite,
	FeatureAuditLogExport:    billing.TierElite,
	FeatureSSO:               billing.TierEnterprise,
	FeatureDedicatedSupport:  billing.TierEnterprise,
}

var tierMaxMembers = map[billing.Tier]int{
	billing.TierStarter:    50,
	billing.TierBasic:      250,
	billing.TierPremium:    1000,
	billing.TierExclusive:  5000,
	billing.TierElite:      25000,
	billing.TierEnterprise: 100000,
}

func MinTierFor(feature Feature) (billing.Tier, bool) {
	tier, ok := featureMatrix[feature]
	return tier, ok
}

func MaxMembersFor(tier billing.Tier) int {
	return tierMaxMembers[tier]
}

// FeaturesFor lists every feature available at the given tier, in
// matrix order grouped by ascending minimum tier.
func FeaturesFor(tier billing.Tier) []Feature {
	features := make([]Feature, 0, len(featureMatrix))
	for _, feature := range AllFeatures() {
		if tier.AtLeast(featureMatrix[feature]) {
			features = append(features, feature)
		}
	}
	return features
}

// AllFeatures returns the matrix keys in a stable order.
func AllFeatures() []Feature {
	return []Feature{
		FeatureLeaderboards,
		FeatureScheduledEvents,
		FeatureCustomBranding,
		FeatureAdvancedAnalytics,
		FeatureBulkMessaging,
		FeatureAPIAccess,
		FeatureWebhooks,
		FeatureWhiteLabel,
		FeaturePrioritySupport,
		FeatureAuditLogExport,
		FeatureSSO,
		FeatureDedicatedSupport,
	}
}

func (f Feature) Valid() bool {
	_, ok := featureMatrix[f]
	return ok
}
