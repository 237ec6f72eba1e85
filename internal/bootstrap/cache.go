package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-authgate/identity/internal/cache"
	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/metrics"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"

	"go.uber.org/zap"
)

const cacheKeyPrefix = "identity:"

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config, log *zap.SugaredLogger) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Info("Prometheus metrics initialized")
	} else {
		log.Info("metrics disabled (using noop implementation)")
	}
	return recorder
}

// newCache builds one typed cache of the configured backend
func newCache[T any](
	ctx context.Context,
	cfg *config.Config,
	prefix string,
) (core.Cache[T], error) {
	switch cfg.ReferenceCacheType {
	case config.ReferenceCacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[T](
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			cacheKeyPrefix+prefix,
			cfg.ReferenceCacheTTL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis-aside cache: %w", err)
		}
		return c, nil

	case config.ReferenceCacheTypeRedis:
		ctx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[T](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			cacheKeyPrefix+prefix,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		return c, nil

	default: // memory
		return cache.NewMemoryCache[T](), nil
	}
}

// initializeReferenceStore puts the application and scope lookups behind a
// cache. The closers must run on shutdown even when an error is returned.
func initializeReferenceStore(
	ctx context.Context,
	cfg *config.Config,
	db *store.Store,
	log *zap.SugaredLogger,
) (store.ReferenceStore, []func() error, error) {
	var closers []func() error

	apps, err := newCache[models.Application](ctx, cfg, "apps:")
	if err != nil {
		return nil, closers, err
	}
	closers = append(closers, apps.Close)

	scopes, err := newCache[models.Scope](ctx, cfg, "scopes:")
	if err != nil {
		return nil, closers, err
	}
	closers = append(closers, scopes.Close)

	log.Infow("reference cache initialized",
		"type", cfg.ReferenceCacheType,
		"ttl", cfg.ReferenceCacheTTL,
	)
	return store.NewCachedReferenceStore(db, apps, scopes, cfg.ReferenceCacheTTL), closers, nil
}

// initializeCountsCache caches the token counts behind the gauges so that
// several replicas do not all hit the database on every tick.
func initializeCountsCache(
	ctx context.Context,
	cfg *config.Config,
	log *zap.SugaredLogger,
) (core.Cache[int64], func() error, error) {
	if !cfg.MetricsEnabled || cfg.MetricsGaugeUpdateInterval <= 0 {
		return nil, nil, nil
	}

	c, err := newCache[int64](ctx, cfg, "metrics:")
	if err != nil {
		return nil, nil, err
	}
	log.Infow("metrics cache initialized", "type", cfg.ReferenceCacheType)
	return c, c.Close, nil
}
