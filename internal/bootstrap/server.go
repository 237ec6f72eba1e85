package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/metrics"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server, log *zap.SugaredLogger) {
	m.AddRunningJob(func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			log.Errorw("server stopped", "error", err)
			return err
		case <-ctx.Done():
			return nil
		}
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(
	m *graceful.Manager,
	srv *http.Server,
	cfg *config.Config,
	log *zap.SugaredLogger,
) {
	m.AddShutdownJob(func() error {
		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Errorw("server forced to shutdown", "error", err)
			return err
		}

		log.Info("server exited")
		return nil
	})
}

// addTokenPruneJob removes expired and finished tokens and orphaned
// authorizations on a fixed interval.
func addTokenPruneJob(
	m *graceful.Manager,
	cfg *config.Config,
	maintenance *services.MaintenanceService,
	log *zap.SugaredLogger,
) {
	if cfg.TokenPruneInterval <= 0 {
		log.Info("token pruning disabled")
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.TokenPruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := maintenance.Prune(ctx); err != nil && ctx.Err() == nil {
					log.Errorw("prune failed", "error", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(m *graceful.Manager, app *Application) {
	cfg := app.Config
	if app.CountsCache == nil {
		return
	}

	updater := metrics.NewGaugeUpdater(
		metrics.NewCacheWrapper(app.DB, app.CountsCache),
		app.MetricsRecorder,
		cfg.MetricsGaugeUpdateInterval,
		app.Log.Named("metrics"),
	)
	m.AddRunningJob(func(ctx context.Context) error {
		return updater.Run(ctx, cfg.MetricsGaugeUpdateInterval)
	})
}

// addAuditLogCleanupJob adds periodic audit log cleanup job
func addAuditLogCleanupJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
	log *zap.SugaredLogger,
) {
	if !cfg.EnableAuditLogging || cfg.AuditLogRetention <= 0 {
		return
	}

	cleanup := func(ctx context.Context) {
		deleted, err := auditService.CleanupOldLogs(ctx, cfg.AuditLogRetention)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Errorw("failed to cleanup old audit logs", "error", err)
		case deleted > 0:
			log.Infow("cleaned up old audit logs", "deleted", deleted)
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		// Run cleanup immediately on startup
		cleanup(ctx)

		for {
			select {
			case <-ticker.C:
				cleanup(ctx)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addStorageShutdownJob flushes the audit buffer and then closes the
// database. The order matters: the flush writes to the database.
func addStorageShutdownJob(
	m *graceful.Manager,
	cfg *config.Config,
	auditService *services.AuditService,
	db *store.Store,
	log *zap.SugaredLogger,
) {
	m.AddShutdownJob(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.AuditShutdownTimeout)
		defer cancel()

		var errs []error
		if err := auditService.Shutdown(ctx); err != nil {
			log.Errorw("error shutting down audit service", "error", err)
			errs = append(errs, err)
		}
		if err := db.Close(); err != nil {
			log.Errorw("error closing database", "error", err)
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client, log *zap.SugaredLogger) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := redisClient.Close(); err != nil {
			log.Errorw("error closing Redis client", "error", err)
			return err
		}
		log.Info("Redis connection closed")
		return nil
	})
}

// addCacheCleanupJob closes every cache on shutdown
func addCacheCleanupJob(m *graceful.Manager, closers []func() error, log *zap.SugaredLogger) {
	if len(closers) == 0 {
		return
	}

	m.AddShutdownJob(func() error {
		var errs []error
		for _, closeCache := range closers {
			errs = append(errs, closeCache())
		}
		if err := errors.Join(errs...); err != nil {
			log.Errorw("error closing caches", "error", err)
			return err
		}
		log.Info("caches closed")
		return nil
	})
}
