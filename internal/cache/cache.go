// Package cache stores short-lived subaccount listings.
package cache

import (
	"context"
	"sync"
	"time"
)

// SubaccountCache keeps the last successful upstream subaccount listing per key.
// Implementations must be safe for concurrent use.
type SubaccountCache interface {
	// Get returns the cached names and whether they were present.
	Get(ctx context.Context, key string) ([]string, bool, error)

	// Set stores names under key for the cache's TTL.
	Set(ctx context.Context, key string, names []string) error
}

type entry struct {
	names     []string
	expiresAt time.Time
}

// Memory is an in-process TTL cache.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an in-process cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements SubaccountCache.
func (m *Memory) Get(_ context.Context, key string) ([]string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, still := m.entries[key]; still && !m.now().Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]string(nil), e.names...), true, nil
}

// Set implements SubaccountCache.
func (m *Memory) Set(_ context.Context, key string, names []string) error {
	if m.ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		names:     append([]string(nil), names...),
		expiresAt: m.now().Add(m.ttl),
	}
	return nil
}

var _ SubaccountCache = (*Memory)(nil)
