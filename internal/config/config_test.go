package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AccessTokenExpiration:  10 * time.Minute,
		RefreshTokenExpiration: 720 * time.Hour,
		AuthCodeExpiration:     10 * time.Minute,
		PKCEMethod:             PKCEMethodS256,
		APIScopeName:           "identity-api",
		APIResources:           []string{"identity-api"},
		SPAClientID:            "spa-client",
		SPARedirectURIs:        []string{"http://localhost:3000/callback"},
		RateLimitStore:         RateLimitStoreMemory,
		ReferenceCacheType:     ReferenceCacheTypeMemory,
		ReferenceCacheTTL:      30 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{
			name:   "valid redis stores",
			mutate: func(c *Config) { c.RateLimitStore = RateLimitStoreRedis; c.ReferenceCacheType = ReferenceCacheTypeRedisAside },
		},
		{
			name:     "missing api scope",
			mutate:   func(c *Config) { c.APIScopeName = "  " },
			errorMsg: "API_SCOPE_NAME must not be empty",
		},
		{
			name:     "missing resources",
			mutate:   func(c *Config) { c.APIResources = nil },
			errorMsg: "API_RESOURCES must list at least one resource",
		},
		{
			name:     "missing spa client",
			mutate:   func(c *Config) { c.SPAClientID = "" },
			errorMsg: "SPA_CLIENT_ID must not be empty",
		},
		{
			name:     "plain pkce rejected",
			mutate:   func(c *Config) { c.PKCEMethod = "plain" },
			errorMsg: `invalid PKCE_METHOD value: "plain"`,
		},
		{
			name:     "rate limit store typo",
			mutate:   func(c *Config) { c.RateLimitStore = "reddis" },
			errorMsg: `invalid RATE_LIMIT_STORE value: "reddis"`,
		},
		{
			name:     "unknown cache type",
			mutate:   func(c *Config) { c.ReferenceCacheType = "memcache" },
			errorMsg: `invalid REFERENCE_CACHE_TYPE value: "memcache"`,
		},
		{
			name: "default secrets in production",
			mutate: func(c *Config) {
				c.IsProduction = true
				c.JWTSecret = defaultJWTSecret
				c.SessionSecret = "short"
			},
			errorMsg: "JWT_SECRET must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"ACCESS_TOKEN_EXPIRATION", "REFRESH_TOKEN_EXPIRATION", "AUTH_CODE_EXPIRATION",
		"PKCE_METHOD", "API_SCOPE_NAME", "API_RESOURCES", "SPA_REDIRECT_URIS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 10*time.Minute, cfg.AccessTokenExpiration)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenExpiration)
	assert.Equal(t, 10*time.Minute, cfg.AuthCodeExpiration)
	assert.Equal(t, PKCEMethodS256, cfg.PKCEMethod)
	assert.Equal(t, []string{cfg.APIScopeName}, cfg.APIResources)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_CommaSeparatedRedirectURIs(t *testing.T) {
	t.Setenv("SPA_REDIRECT_URIS", " https://a.example.com/cb , ,https://b.example.com/cb")
	t.Setenv("SPA_POST_LOGOUT_REDIRECT_URIS", "https://a.example.com/")

	cfg := Load()
	assert.Equal(t, []string{"https://a.example.com/cb", "https://b.example.com/cb"}, cfg.SPARedirectURIs)
	assert.Equal(t, []string{"https://a.example.com/"}, cfg.SPAPostLogoutRedirectURIs)
}

func TestLoad_DurationOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRATION", "15m")
	t.Setenv("AUTH_CODE_EXPIRATION", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiration)
	assert.Equal(t, 10*time.Minute, cfg.AuthCodeExpiration, "invalid values fall back to the default")
}
