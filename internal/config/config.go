package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Reference cache constants
const (
	ReferenceCacheTypeMemory     = "memory"
	ReferenceCacheTypeRedis      = "redis"
	ReferenceCacheTypeRedisAside = "redis-aside"
)

// PKCEMethodS256 is the only accepted code_challenge_method.
const PKCEMethodS256 = "S256"

const (
	defaultJWTSecret     = "your-256-bit-secret-change-in-production"
	defaultSessionSecret = "session-secret-change-in-production"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string // also the token issuer
	IsProduction bool

	// Secrets
	JWTSecret     string
	SessionSecret string
	SessionMaxAge int // seconds

	// Token lifetimes
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	AuthCodeExpiration     time.Duration
	PKCEMethod             string

	// API resource protected by issued access tokens
	APIScopeName        string
	APIScopeDisplayName string
	APIResources        []string

	// Default SPA client
	SPAClientID               string
	SPAClientName             string
	SPARedirectURIs           []string
	SPAPostLogoutRedirectURIs []string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string
	DBInitTimeout  time.Duration

	// Reference data cache (applications and scopes)
	ReferenceCacheType string
	ReferenceCacheTTL  time.Duration

	// Redis
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisConnTimeout time.Duration

	// Rate limiting (requests per minute per IP)
	EnableRateLimit          bool
	RateLimitStore           string
	TokenRateLimit           int
	AuthorizeRateLimit       int
	LoginRateLimit           int
	RateLimitCleanupInterval time.Duration

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string
	MetricsGaugeUpdateInterval time.Duration

	// Token maintenance
	TokenPruneInterval  time.Duration
	TokenPruneRetention time.Duration

	// Audit
	EnableAuditLogging bool
	AuditLogBufferSize int
	AuditLogRetention  time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "console" or "json"

	// Bootstrap
	DefaultAdminPassword string

	// Shutdown
	ServerShutdownTimeout time.Duration
	AuditShutdownTimeout  time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "identity.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	apiScope := getEnv("API_SCOPE_NAME", "identity-api")

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		IsProduction: getEnv("ENVIRONMENT", "") == "production",

		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		SessionSecret: getEnv("SESSION_SECRET", defaultSessionSecret),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 86400),

		AccessTokenExpiration:  getEnvDuration("ACCESS_TOKEN_EXPIRATION", 10*time.Minute),
		RefreshTokenExpiration: getEnvDuration("REFRESH_TOKEN_EXPIRATION", 720*time.Hour), // 30 days
		AuthCodeExpiration:     getEnvDuration("AUTH_CODE_EXPIRATION", 10*time.Minute),
		PKCEMethod:             getEnv("PKCE_METHOD", PKCEMethodS256),

		APIScopeName:        apiScope,
		APIScopeDisplayName: getEnv("API_SCOPE_DISPLAY_NAME", "Identity API"),
		APIResources:        getEnvSlice("API_RESOURCES", []string{apiScope}),

		SPAClientID:   getEnv("SPA_CLIENT_ID", "spa-client"),
		SPAClientName: getEnv("SPA_CLIENT_NAME", "SPA Client"),
		SPARedirectURIs: getEnvSlice(
			"SPA_REDIRECT_URIS",
			[]string{"http://localhost:3000/callback"},
		),
		SPAPostLogoutRedirectURIs: getEnvSlice(
			"SPA_POST_LOGOUT_REDIRECT_URIS",
			[]string{"http://localhost:3000/"},
		),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,
		DBInitTimeout:  getEnvDuration("DB_INIT_TIMEOUT", 30*time.Second),

		ReferenceCacheType: getEnv("REFERENCE_CACHE_TYPE", ReferenceCacheTypeMemory),
		ReferenceCacheTTL:  getEnvDuration("REFERENCE_CACHE_TTL", 30*time.Second),

		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisConnTimeout: getEnvDuration("REDIS_CONN_TIMEOUT", 5*time.Second),

		EnableRateLimit:          getEnvBool("ENABLE_RATE_LIMIT", true),
		RateLimitStore:           getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		TokenRateLimit:           getEnvInt("TOKEN_RATE_LIMIT", 60),
		AuthorizeRateLimit:       getEnvInt("AUTHORIZE_RATE_LIMIT", 60),
		LoginRateLimit:           getEnvInt("LOGIN_RATE_LIMIT", 10),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 5*time.Minute),

		TokenPruneInterval:  getEnvDuration("TOKEN_PRUNE_INTERVAL", time.Hour),
		TokenPruneRetention: getEnvDuration("TOKEN_PRUNE_RETENTION", 24*time.Hour),

		EnableAuditLogging: getEnvBool("ENABLE_AUDIT_LOGGING", true),
		AuditLogBufferSize: getEnvInt("AUDIT_LOG_BUFFER_SIZE", 1000),
		AuditLogRetention:  getEnvDuration("AUDIT_LOG_RETENTION", 90*24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		DefaultAdminPassword: strings.TrimSpace(getEnv("DEFAULT_ADMIN_PASSWORD", "")),

		ServerShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		AuditShutdownTimeout:  getEnvDuration("AUDIT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks settings that would leave the server unable to seed or
// issue tokens safely. Any error is fatal at startup.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.APIScopeName) == "" {
		errs = append(errs, errors.New("API_SCOPE_NAME must not be empty"))
	}
	if len(c.APIResources) == 0 {
		errs = append(errs, errors.New("API_RESOURCES must list at least one resource"))
	}
	if strings.TrimSpace(c.SPAClientID) == "" {
		errs = append(errs, errors.New("SPA_CLIENT_ID must not be empty"))
	}
	if len(c.SPARedirectURIs) == 0 {
		errs = append(errs, errors.New("SPA_REDIRECT_URIS must list at least one URI"))
	}
	if c.PKCEMethod != PKCEMethodS256 {
		errs = append(errs, fmt.Errorf("invalid PKCE_METHOD value: %q (only %s is supported)",
			c.PKCEMethod, PKCEMethodS256))
	}
	if c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 || c.AuthCodeExpiration <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	switch c.RateLimitStore {
	case RateLimitStoreMemory, RateLimitStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("invalid RATE_LIMIT_STORE value: %q (must be %q or %q)",
			c.RateLimitStore, RateLimitStoreMemory, RateLimitStoreRedis))
	}

	switch c.ReferenceCacheType {
	case ReferenceCacheTypeMemory, ReferenceCacheTypeRedis, ReferenceCacheTypeRedisAside:
	default:
		errs = append(errs, fmt.Errorf(
			"invalid REFERENCE_CACHE_TYPE value: %q (must be %q, %q or %q)",
			c.ReferenceCacheType,
			ReferenceCacheTypeMemory,
			ReferenceCacheTypeRedis,
			ReferenceCacheTypeRedisAside,
		))
	}
	if c.ReferenceCacheTTL <= 0 {
		errs = append(errs, errors.New("REFERENCE_CACHE_TTL must be positive"))
	}

	if c.IsProduction {
		if c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be set to at least 32 characters in production"))
		}
		if c.SessionSecret == defaultSessionSecret || len(c.SessionSecret) < 32 {
			errs = append(errs, errors.New("SESSION_SECRET must be set to at least 32 characters in production"))
		}
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvSlice reads a comma-separated list, dropping blank entries.
func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}
