package core

import (
	"context"
	"time"
)

// Cache is a typed key-value cache for short-lived reference data.
type Cache[T any] interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// GetWithFetch serves key from cache, calling fetchFunc and storing its
	// result on a miss. Errors from fetchFunc are returned unchanged and
	// nothing is cached.
	GetWithFetch(
		ctx context.Context,
		key string,
		ttl time.Duration,
		fetchFunc func(ctx context.Context, key string) (T, error),
	) (T, error)

	Health(ctx context.Context) error
	Close() error
}
