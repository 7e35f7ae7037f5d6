// AngelaMos | 2026
// cache.go

package cache

import (
	"context"
	"time"
)

// LockOutcome reports the result of an atomic set-if-absent attempt.
// Callers must distinguish a lock that is held elsewhere from a cache
// that could not be reached: the webhook pipeline treats the former as
// a duplicate and the latter as acquired (fail open).
type LockOutcome int

const (
	LockUnavailable LockOutcome = iota
	LockHeld
	LockAcquired
)

func (o LockOutcome) String() string {
	switch o {
	case LockAcquired:
		return "acquired"
	case LockHeld:
		return "held"
	default:
		return "unavailable"
	}
}

// Store is the cache port shared by all service instances. Implementations
// never return transport errors: a failed Get reads as absent, a failed
// Set or Delete is silently dropped (after logging), and a failed
// TrySetIfAbsent reports LockUnavailable. Every call is bounded by a
// short timeout.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Delete(ctx context.Context, key string)
	TrySetIfAbsent(
		ctx context.Context,
		key, value string,
		ttl time.Duration,
	) LockOutcome
}
