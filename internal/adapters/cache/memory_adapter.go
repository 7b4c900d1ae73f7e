package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/Clinicqueuedesign/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryAdapter implements the CacheProvider interface with an in-process map.
// Used in tests and single-node deployments where Redis is unavailable.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryAdapter creates a new in-memory cache adapter
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryAdapterWithClock creates an in-memory cache adapter with a custom
// clock, for deterministic expiry in tests
func NewMemoryAdapterWithClock(now func() time.Time) *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()

	if !ok || entry.expired(a.now()) {
		if ok {
			a.mu.Lock()
			delete(a.entries, key)
			a.mu.Unlock()
		}
		return nil, fmt.Errorf("key not found: %s", key)
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores a value in cache with a TTL. A non-positive TTL stores the value
// without expiry.
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = a.now().Add(ttl)
	}

	a.mu.Lock()
	a.entries[key] = entry
	a.mu.Unlock()
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	delete(a.entries, key)
	a.mu.Unlock()
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if entry.expired(a.now()) {
		a.mu.Lock()
		delete(a.entries, key)
		a.mu.Unlock()
		return false, nil
	}
	return true, nil
}
