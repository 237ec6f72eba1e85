package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/go-authgate/identity/internal/auth"
	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/logging"
	"github.com/go-authgate/identity/internal/metrics"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer      = "https://id.example.com"
	testSPAClientID = "spa-client"
	testRedirectURI = "https://app.example.com/callback"
	testAPIScope    = "identity-api"
	testPassword    = "correct horse battery staple"
)

// testEnv wires every service against a fresh SQLite :memory: database.
type testEnv struct {
	store     *store.Store
	config    *config.Config
	provider  *token.Provider
	builder   *principal.Builder
	issuer    *Issuer
	deps      GrantDeps
	authorize *AuthorizeService
	tokens    *TokenService
	maint     *MaintenanceService
	seed      *SeedService
	app       *models.Application
	user      *models.User
}

func newTestConfig() *config.Config {
	return &config.Config{
		BaseURL:                testIssuer,
		JWTSecret:              "test-secret-with-enough-entropy-for-hs256",
		AccessTokenExpiration:  time.Hour,
		RefreshTokenExpiration: 24 * time.Hour,
		AuthCodeExpiration:     5 * time.Minute,
		APIScopeName:           testAPIScope,
		APIScopeDisplayName:    "Identity API",
		APIResources:           []string{"identity-resource"},
		SPAClientID:            testSPAClientID,
		SPAClientName:          "Test SPA",
		SPARedirectURIs:        []string{testRedirectURI},
		DefaultAdminPassword:   testPassword,
		TokenPruneRetention:    time.Hour,
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestEnv seeds the SPA client and a regular user. m may be nil.
func newTestEnv(t *testing.T, m core.Recorder) *testEnv {
	t.Helper()
	if m == nil {
		m = metrics.NewNoopMetrics()
	}

	ctx := context.Background()
	log := logging.Nop()
	cfg := newTestConfig()
	s := newTestStore(t)

	provider := token.NewProvider(cfg.BaseURL, cfg.JWTSecret)
	builder := principal.NewBuilder(cfg.APIScopeName, cfg.APIResources)
	issuer := NewIssuer(s, provider, cfg, m, log)

	seed := NewSeedService(s, s, s, cfg, nil, log)
	require.NoError(t, seed.Seed(ctx))

	app, err := s.FindApplicationByClientID(ctx, testSPAClientID)
	require.NoError(t, err)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	user := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		FullName:     "Alice Liddell",
		Roles:        models.StringArray{models.RoleUser},
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(ctx, user))

	deps := GrantDeps{
		Applications:   s,
		Authorizations: s,
		Tokens:         s,
		Users:          s,
		Builder:        builder,
		Issuer:         issuer,
		Metrics:        m,
		Log:            log,
	}

	registry := NewGrantRegistry(deps, nil)

	return &testEnv{
		store:     s,
		config:    cfg,
		provider:  provider,
		builder:   builder,
		issuer:    issuer,
		deps:      deps,
		authorize: NewAuthorizeService(s, s, s, builder, issuer, nil, m, log),
		tokens:    NewTokenService(registry, s, s, s, provider, nil, m, log),
		maint:     NewMaintenanceService(s, s, s, nil, m, log, cfg.TokenPruneRetention),
		seed:      seed,
		app:       app,
		user:      user,
	}
}

func (e *testEnv) session() Session {
	return Session{UserID: e.user.ID, AuthTime: time.Now()}
}

// authorizeRequest builds a valid PKCE authorize request for scope.
func authorizeRequest(scope, verifier string) AuthorizeRequest {
	return AuthorizeRequest{
		ClientID:            testSPAClientID,
		RedirectURI:         testRedirectURI,
		ResponseType:        ResponseTypeCode,
		Scope:               scope,
		State:               "xyz",
		Nonce:               "n-0S6_WzA2Mj",
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: token.PKCEMethodS256,
		RequestURI:          "/connect/authorize?client_id=" + testSPAClientID,
	}
}

// issueCode runs the authorize step and returns the raw code and verifier.
func (e *testEnv) issueCode(t *testing.T, scope string) (string, string) {
	t.Helper()
	verifier := oauth2.GenerateVerifier()
	out, err := e.authorize.Authorize(context.Background(), authorizeRequest(scope, verifier), e.session())
	require.NoError(t, err)
	require.NotEmpty(t, out.Code)

	u, err := url.Parse(out.RedirectURI)
	require.NoError(t, err)
	require.Equal(t, out.Code, u.Query().Get("code"))
	return out.Code, verifier
}

func codeGrant(code, verifier string) *GrantRequest {
	return &GrantRequest{
		GrantType:    GrantTypeAuthorizationCode,
		ClientID:     testSPAClientID,
		Code:         code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: verifier,
	}
}

func refreshGrant(refreshToken, scope string) *GrantRequest {
	return &GrantRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     testSPAClientID,
		RefreshToken: refreshToken,
		Scope:        scope,
	}
}

// exchange runs authorize and the code grant for scope.
func (e *testEnv) exchange(t *testing.T, scope string) *TokenResponse {
	t.Helper()
	code, verifier := e.issueCode(t, scope)
	resp, err := e.tokens.Exchange(context.Background(), codeGrant(code, verifier))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) countTokens(t *testing.T, tokenType models.TokenType, status models.TokenStatus) int64 {
	t.Helper()
	n, err := e.store.CountTokens(context.Background(), tokenType, status)
	require.NoError(t, err)
	return n
}
