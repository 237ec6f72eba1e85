package metrics

import (
	"context"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
)

// CacheWrapper provides a read-through cache for gauge counts so several
// instances sharing a Redis cache do not all hit the database.
type CacheWrapper struct {
	store core.TokenCounter
	cache core.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store core.TokenCounter, cache core.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
	}
}

// GetActiveTokensCount returns the number of valid, unexpired tokens of
// tokenType, cached for ttl.
func (m *CacheWrapper) GetActiveTokensCount(
	ctx context.Context,
	tokenType models.TokenType,
	ttl time.Duration,
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		"tokens:"+string(tokenType),
		ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return m.store.CountActiveTokens(ctx, tokenType)
		},
	)
}
