// AngelaMos | 2026
// memory_test.go

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, found := m.Get(ctx, "missing")
	assert.False(t, found)

	m.Set(ctx, "k", "v", time.Minute)

	got, found := m.Get(ctx, "k")
	require.True(t, found)
	assert.Equal(t, "v", got)

	m.Delete(ctx, "k")
	_, found = m.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Now()
	m.now = func() time.Time { return base }

	m.Set(ctx, "k", "v", time.Minute)

	_, found := m.Get(ctx, "k")
	assert.True(t, found)

	m.now = func() time.Time { return base.Add(time.Minute + time.Second) }

	_, found = m.Get(ctx, "k")
	assert.False(t, found)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Now()
	m.now = func() time.Time { return base }

	m.Set(ctx, "k", "v", 0)

	m.now = func() time.Time { return base.Add(24 * time.Hour) }

	_, found := m.Get(ctx, "k")
	assert.True(t, found)
}

func TestMemoryTrySetIfAbsent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	outcome := m.TrySetIfAbsent(ctx, "lock", "a", time.Minute)
	assert.Equal(t, LockAcquired, outcome)

	outcome = m.TrySetIfAbsent(ctx, "lock", "b", time.Minute)
	assert.Equal(t, LockHeld, outcome)

	// Holder value is the first writer's.
	got, found := m.Get(ctx, "lock")
	require.True(t, found)
	assert.Equal(t, "a", got)
}

func TestMemoryTrySetIfAbsentAfterExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Now()
	m.now = func() time.Time { return base }

	require.Equal(t, LockAcquired, m.TrySetIfAbsent(ctx, "lock", "a", time.Second))

	m.now = func() time.Time { return base.Add(2 * time.Second) }

	assert.Equal(t, LockAcquired, m.TrySetIfAbsent(ctx, "lock", "b", time.Second))
}

func TestMemoryUnavailable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "k", "v", time.Minute)
	m.SetUnavailable(true)

	_, found := m.Get(ctx, "k")
	assert.False(t, found)

	m.Set(ctx, "other", "v", time.Minute)
	assert.Equal(t, LockUnavailable, m.TrySetIfAbsent(ctx, "lock", "a", time.Minute))

	m.SetUnavailable(false)

	// The earlier write survived; the writes during the outage were lost.
	_, found = m.Get(ctx, "k")
	assert.True(t, found)
	_, found = m.Get(ctx, "other")
	assert.False(t, found)
}

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "billing:event:evt_1", EventProcessedKey("evt_1"))
	assert.Equal(t, "billing:lock:evt_1", EventLockKey("evt_1"))
	assert.Equal(t, "entitlements:comm_1", EntitlementsKey("comm_1"))
}

func TestEventKeyHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.False(t, IsEventProcessed(ctx, m, "evt_1"))

	MarkEventProcessed(ctx, m, "evt_1", time.Hour)
	assert.True(t, IsEventProcessed(ctx, m, "evt_1"))

	assert.Equal(t, LockAcquired,
		AcquireEventLock(ctx, m, "evt_2", "instance-a", time.Minute))
	assert.Equal(t, LockHeld,
		AcquireEventLock(ctx, m, "evt_2", "instance-b", time.Minute))

	ReleaseEventLock(ctx, m, "evt_2")
	assert.Equal(t, LockAcquired,
		AcquireEventLock(ctx, m, "evt_2", "instance-b", time.Minute))
}

func TestInvalidateEntitlements(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, EntitlementsKey("comm_1"), "{}", time.Minute)
	InvalidateEntitlements(ctx, m, "comm_1")

	_, found := m.Get(ctx, EntitlementsKey("comm_1"))
	assert.False(t, found)
}

func TestLockOutcomeString(t *testing.T) {
	assert.Equal(t, "unavailable", LockUnavailable.String())
	assert.Equal(t, "held", LockHeld.String())
	assert.Equal(t, "acquired", LockAcquired.String())
}
