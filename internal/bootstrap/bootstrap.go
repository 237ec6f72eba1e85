package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Log    *zap.SugaredLogger

	// Core infrastructure
	DB              *store.Store
	References      store.ReferenceStore
	MetricsRecorder core.Recorder
	CountsCache     core.Cache[int64]
	cacheClosers    []func() error

	// Token machinery
	TokenProvider *token.Provider
	Builder       *principal.Builder
	Issuer        *services.Issuer
	Grants        services.GrantRegistry

	// Services
	AuditService       *services.AuditService
	UserService        *services.UserService
	AuthorizeService   *services.AuthorizeService
	TokenService       *services.TokenService
	MaintenanceService *services.MaintenanceService
	SeedService        *services.SeedService

	// HTTP
	RateLimitRedisClient *redis.Client
	HandlerSet           handlerSet
	Router               *gin.Engine
	Server               *http.Server
}

// New validates the configuration and builds everything below the HTTP
// layer. The CLI maintenance commands use it directly; Close releases what
// it opened.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Application, error) {
	app := &Application{Config: cfg, Log: log}

	// Phase 1: Validate configuration
	if err := validateConfiguration(cfg); err != nil {
		return nil, err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	return app, nil
}

// Run seeds reference data, then serves HTTP until a shutdown signal.
func Run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	app, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Phase 4: Seed before the first authorize request can arrive
	if err := app.SeedService.Seed(ctx); err != nil {
		_ = app.Close(ctx)
		return err
	}

	// Phase 5: Initialize HTTP layer
	if err := app.initializeHTTPLayer(ctx); err != nil {
		_ = app.Close(ctx)
		return err
	}

	// Phase 6: Start server with graceful shutdown
	app.startWithGracefulShutdown()
	return nil
}

// initializeInfrastructure sets up database, metrics, caches
func (app *Application) initializeInfrastructure(ctx context.Context) error {
	var err error

	// Database
	app.DB, err = initializeDatabase(ctx, app.Config, app.Log)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config, app.Log)

	// Reference data cache in front of applications and scopes
	var closers []func() error
	app.References, closers, err = initializeReferenceStore(ctx, app.Config, app.DB, app.Log)
	app.cacheClosers = append(app.cacheClosers, closers...)
	if err != nil {
		return err
	}

	// Token counts behind the gauges
	var closer func() error
	app.CountsCache, closer, err = initializeCountsCache(ctx, app.Config, app.Log)
	if closer != nil {
		app.cacheClosers = append(app.cacheClosers, closer)
	}
	return err
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	cfg := app.Config

	// Audit service (required by other services)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Log.Named("audit"),
		cfg.EnableAuditLogging,
		cfg.AuditLogBufferSize,
	)

	initializeServices(app)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer(ctx context.Context) error {
	var err error

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(ctx, app.Config, app.Log)
	if err != nil {
		return err
	}

	// Handlers
	app.HandlerSet = initializeHandlers(app)

	// Router
	app.Router, err = setupRouter(app)
	if err != nil {
		return err
	}

	// HTTP Server
	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	// Add jobs
	addServerRunningJob(m, app.Server, app.Log)
	addServerShutdownJob(m, app.Server, app.Config, app.Log)
	addTokenPruneJob(m, app.Config, app.MaintenanceService, app.Log)
	addMetricsGaugeUpdateJob(m, app)
	addAuditLogCleanupJob(m, app.Config, app.AuditService, app.Log)
	addStorageShutdownJob(m, app.Config, app.AuditService, app.DB, app.Log)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient, app.Log)
	addCacheCleanupJob(m, app.cacheClosers, app.Log)

	// Wait for graceful shutdown
	<-m.Done()
}

// Close flushes the audit log and releases caches and the database. It is
// used when the application never reached the graceful manager.
func (app *Application) Close(ctx context.Context) error {
	var errs []error
	if app.AuditService != nil {
		errs = append(errs, app.AuditService.Shutdown(ctx))
	}
	if app.RateLimitRedisClient != nil {
		errs = append(errs, app.RateLimitRedisClient.Close())
	}
	for _, closeCache := range app.cacheClosers {
		errs = append(errs, closeCache())
	}
	if app.DB != nil {
		errs = append(errs, app.DB.Close())
	}
	return errors.Join(errs...)
}
