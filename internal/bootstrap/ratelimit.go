package bootstrap

import (
	"fmt"

	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateLimitMiddlewares holds rate limiting middlewares for different endpoints
type rateLimitMiddlewares struct {
	login     gin.HandlerFunc
	authorize gin.HandlerFunc
	token     gin.HandlerFunc
}

func noOpMiddleware(c *gin.Context) { c.Next() }

// setupRateLimiting configures rate limiting middlewares based on configuration.
// redisClient is nil unless the redis store is selected.
func setupRateLimiting(
	cfg *config.Config,
	redisClient *redis.Client,
	log *zap.SugaredLogger,
) (rateLimitMiddlewares, error) {
	if !cfg.EnableRateLimit {
		log.Info("rate limiting disabled")
		return rateLimitMiddlewares{
			login:     noOpMiddleware,
			authorize: noOpMiddleware,
			token:     noOpMiddleware,
		}, nil
	}

	storeType := middleware.RateLimitStoreType(cfg.RateLimitStore)
	log.Infow("rate limiting enabled", "store", storeType)

	createLimiter := func(requestsPerMinute int, endpoint string) (gin.HandlerFunc, error) {
		limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: requestsPerMinute,
			Endpoint:          endpoint,
			StoreType:         storeType,
			RedisClient:       redisClient,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
			Log:               log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter for %s: %w", endpoint, err)
		}
		return limiter, nil
	}

	var (
		limiters rateLimitMiddlewares
		err      error
	)
	if limiters.login, err = createLimiter(cfg.LoginRateLimit, "/login"); err != nil {
		return limiters, err
	}
	if limiters.authorize, err = createLimiter(cfg.AuthorizeRateLimit, "/connect/authorize"); err != nil {
		return limiters, err
	}
	if limiters.token, err = createLimiter(cfg.TokenRateLimit, "/connect/token"); err != nil {
		return limiters, err
	}
	return limiters, nil
}
