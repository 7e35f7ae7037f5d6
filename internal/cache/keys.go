// AngelaMos | 2026
// keys.go

package cache

import (
	"context"
	"time"
)

const (
	eventProcessedPrefix = "billing:event:"
	eventLockPrefix      = "billing:lock:"
	entitlementsPrefix   = "entitlements:"
)

func EventProcessedKey(eventID string) string {
	return eventProcessedPrefix + eventID
}

func EventLockKey(eventID string) string {
	return eventLockPrefix + eventID
}

func EntitlementsKey(communityID string) string {
	return entitlementsPrefix + communityID
}

// IsEventProcessed is the fast-path duplicate check. Absent and
// unavailable read the same here; the durable store check is the
// backstop either way.
func IsEventProcessed(ctx context.Context, s Store, eventID string) bool {
	_, found := s.Get(ctx, EventProcessedKey(eventID))
	return found
}

func MarkEventProcessed(
	ctx context.Context,
	s Store,
	eventID string,
	ttl time.Duration,
) {
	s.Set(ctx, EventProcessedKey(eventID), "1", ttl)
}

func AcquireEventLock(
	ctx context.Context,
	s Store,
	eventID, holder string,
	ttl time.Duration,
) LockOutcome {
	return s.TrySetIfAbsent(ctx, EventLockKey(eventID), holder, ttl)
}

func ReleaseEventLock(ctx context.Context, s Store, eventID string) {
	s.Delete(ctx, EventLockKey(eventID))
}

func InvalidateEntitlements(ctx context.Context, s Store, communityID string) {
	s.Delete(ctx, EntitlementsKey(communityID))
}
