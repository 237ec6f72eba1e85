package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-authgate/identity/internal/core"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisaside"
)

var _ core.Cache[struct{}] = (*RueidisAsideCache[struct{}])(nil)

// RueidisAsideCache uses rueidisaside: values are kept in a client-side cache
// that Redis invalidates over RESP3, and concurrent misses across instances
// are coalesced by a Redis lock. Suitable for high-load multi-instance
// deployments.
type RueidisAsideCache[T any] struct {
	client    rueidisaside.CacheAsideClient
	keyPrefix string
	clientTTL time.Duration
}

// NewRueidisAsideCache creates the client. clientTTL bounds how long a value
// may live in the local cache between invalidations.
func NewRueidisAsideCache[T any](
	addr, password string,
	db int,
	keyPrefix string,
	clientTTL time.Duration,
) (*RueidisAsideCache[T], error) {
	client, err := rueidisaside.NewClient(rueidisaside.ClientOption{
		ClientOption: rueidis.ClientOption{
			InitAddress:       []string{addr},
			Password:          password,
			SelectDB:          db,
			CacheSizeEachConn: 32 * 1024 * 1024,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rueidisaside client: %w", err)
	}

	return &RueidisAsideCache[T]{client: client, keyPrefix: keyPrefix, clientTTL: clientTTL}, nil
}

// Get reads through the client-side cache without populating on a miss.
func (r *RueidisAsideCache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	inner := r.client.Client()
	raw, err := inner.DoCache(ctx, inner.B().Get().Key(r.keyPrefix+key).Cache(), r.clientTTL).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return zero, ErrCacheMiss
		}
		return zero, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return decode[T](raw)
}

// GetWithFetch lets rueidisaside call fetchFunc at most once per key across
// all instances sharing the Redis server.
func (r *RueidisAsideCache[T]) GetWithFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context, key string) (T, error),
) (T, error) {
	var fetchErr error
	raw, err := r.client.Get(ctx, ttl, r.keyPrefix+key, func(ctx context.Context, _ string) (string, error) {
		value, err := fetchFunc(ctx, key)
		if err != nil {
			fetchErr = err
			return "", err
		}
		return encode(value)
	})
	if err != nil {
		var zero T
		if fetchErr != nil {
			return zero, fetchErr
		}
		return zero, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return decode[T](raw)
}

func (r *RueidisAsideCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	inner := r.client.Client()
	if err := inner.Do(ctx, inner.B().Set().Key(r.keyPrefix+key).Value(raw).Ex(ttl).Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes the key; Redis then invalidates every client-side copy.
func (r *RueidisAsideCache[T]) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

func (r *RueidisAsideCache[T]) Close() error {
	r.client.Close()
	return nil
}

func (r *RueidisAsideCache[T]) Health(ctx context.Context) error {
	inner := r.client.Client()
	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
