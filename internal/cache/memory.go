// AngelaMos | 2026
// memory.go

package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Store used in tests and single-instance
// development runs. SetUnavailable simulates a cache outage: every
// operation behaves exactly like the Redis store does on transport
// failure.
type Memory struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	unavailable bool
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = down
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return "", false
	}

	entry, ok := m.entries[key]
	if !ok {
		return "", false
	}

	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", false
	}

	return entry.value, true
}

func (m *Memory) Set(
	_ context.Context,
	key, value string,
	ttl time.Duration,
) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return
	}

	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: m.expiry(ttl),
	}
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return
	}

	delete(m.entries, key)
}

func (m *Memory) TrySetIfAbsent(
	_ context.Context,
	key, value string,
	ttl time.Duration,
) LockOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return LockUnavailable
	}

	entry, ok := m.entries[key]
	if ok && (entry.expiresAt.IsZero() || m.now().Before(entry.expiresAt)) {
		return LockHeld
	}

	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: m.expiry(ttl),
	}

	return LockAcquired
}

// Len reports live (unexpired) entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, entry := range m.entries {
		if entry.expiresAt.IsZero() || m.now().Before(entry.expiresAt) {
			count++
		}
	}
	return count
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}
