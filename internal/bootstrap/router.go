package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/metrics"
	"github.com/go-authgate/identity/internal/middleware"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/version"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/go-authgate/identity/api" // swagger docs
)

const sessionCookieName = "identity_session"

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) (*gin.Engine, error) {
	cfg := app.Config
	log := app.Log.Named("http")

	// Setup Gin mode
	setupGinMode(cfg)
	r := gin.New()

	// Setup middleware
	r.Use(metrics.HTTPMetricsMiddleware(app.MetricsRecorder))
	r.Use(middleware.RequestLogger(log), gin.Recovery())
	r.Use(middleware.IPMiddleware())

	// Setup session middleware
	setupSessionMiddleware(r, cfg)

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(app.DB))

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg, log)

	// Setup rate limiting
	rateLimiters, err := setupRateLimiting(cfg, app.RateLimitRedisClient, log)
	if err != nil {
		return nil, err
	}

	// Setup all routes
	setupAllRoutes(r, app, rateLimiters)

	// Log server startup info
	logServerStartup(cfg, log)

	return r, nil
}

// setupSessionMiddleware configures the IdP login cookie
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, sessionStore))
	r.Use(middleware.SessionUser())
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, log *zap.SugaredLogger) {
	switch {
	case !cfg.MetricsEnabled:
		log.Info("Prometheus metrics endpoint disabled")
	case cfg.MetricsToken != "":
		log.Info("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Warn("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// setupAllRoutes configures all application routes
func setupAllRoutes(r *gin.Engine, app *Application, rateLimiters rateLimitMiddlewares) {
	h := app.HandlerSet

	r.GET("/", middleware.CSRFMiddleware(), h.auth.Home)

	// Swagger documentation (development only)
	if !app.Config.IsProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		app.Log.Infow("Swagger UI enabled", "url", app.Config.BaseURL+"/swagger/index.html")
	}

	// Login routes
	r.GET("/login", middleware.CSRFMiddleware(), h.auth.LoginPage)
	r.POST("/login", rateLimiters.login, middleware.CSRFMiddleware(), h.auth.Login)
	r.GET("/logout", middleware.CSRFMiddleware(), h.auth.LogoutPage)
	r.POST("/logout", middleware.CSRFMiddleware(), h.auth.Logout)

	// OIDC discovery
	r.GET("/.well-known/openid-configuration", h.oidc.Discovery)

	// OAuth endpoints
	connect := r.Group("/connect")
	{
		connect.GET("/authorize", rateLimiters.authorize, h.oauth.Authorize)
		connect.POST("/token", rateLimiters.token, h.oauth.Token)
		connect.POST("/revoke", rateLimiters.token, h.oauth.Revoke)

		bearer := middleware.RequireBearer(app.TokenService)
		connect.GET("/userinfo", bearer, h.oidc.UserInfo)
		connect.POST("/userinfo", bearer, h.oidc.UserInfo)
	}
}

// createHealthCheckHandler reports whether the database answers.
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		switch err := db.Health(ctx); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	gin.SetMode(ginModeMap[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config, log *zap.SugaredLogger) {
	log.Infow("identity server starting",
		"version", version.UserAgent(),
		"addr", cfg.ServerAddr,
		"issuer", cfg.BaseURL,
		"gin_mode", ginModeMap[cfg.IsProduction],
	)
	log.Infow("endpoints",
		"discovery", cfg.BaseURL+"/.well-known/openid-configuration",
		"authorize", cfg.BaseURL+"/connect/authorize",
		"token", cfg.BaseURL+"/connect/token",
	)
}
