package providers

import (
	"context"
	"time"
)

// CacheProvider defines the interface for caching operations. The queue
// engine only needs get/set-with-TTL/delete, so an in-memory map can stand in
// for Redis in tests without behavior change.
type CacheProvider interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)
}
