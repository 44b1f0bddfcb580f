package common

import (
	"context"
	"time"
)

// CacheInterface defines the contract for cache implementations.
// Values travel as JSON so both backends return the same concrete types.
type CacheInterface interface {
	// SetJSON stores value under key for ttl
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// GetJSON decodes the cached value into dest and reports whether the key was present
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)

	// Delete removes a value from cache by key
	Delete(ctx context.Context, key string) error

	// Close closes any underlying connections (for Redis, etc.)
	Close() error
}
