package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/identity/internal/auth"
	"github.com/go-authgate/identity/internal/config"
	"github.com/go-authgate/identity/internal/logging"
	"github.com/go-authgate/identity/internal/metrics"
	"github.com/go-authgate/identity/internal/middleware"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/services"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testBaseURL     = "https://id.example.com"
	testClientID    = "spa-client"
	testRedirectURI = "https://app.example.com/callback"
	testLogoutURI   = "https://app.example.com/"
	testPassword    = "correct horse battery staple"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// testServer is a router wired like production against SQLite :memory:.
// It keeps cookies between requests like a browser would.
type testServer struct {
	router  *gin.Engine
	store   *store.Store
	tokens  *services.TokenService
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	log := logging.Nop()
	m := metrics.NewNoopMetrics()

	cfg := &config.Config{
		BaseURL:                   testBaseURL,
		JWTSecret:                 "test-secret-with-enough-entropy-for-hs256",
		AccessTokenExpiration:     time.Hour,
		RefreshTokenExpiration:    24 * time.Hour,
		AuthCodeExpiration:        5 * time.Minute,
		APIScopeName:              "identity-api",
		APIScopeDisplayName:       "Identity API",
		APIResources:              []string{"identity-resource"},
		SPAClientID:               testClientID,
		SPAClientName:             "Test SPA",
		SPARedirectURIs:           []string{testRedirectURI},
		SPAPostLogoutRedirectURIs: []string{testLogoutURI},
		DefaultAdminPassword:      testPassword,
	}

	s, err := store.New(ctx, "sqlite", ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, services.NewSeedService(s, s, s, cfg, nil, log).Seed(ctx))

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hash,
		FullName:     "Alice Liddell",
		Roles:        models.StringArray{models.RoleUser},
		IsActive:     true,
	}))

	provider := token.NewProvider(cfg.BaseURL, cfg.JWTSecret)
	builder := principal.NewBuilder(cfg.APIScopeName, cfg.APIResources)
	issuer := services.NewIssuer(s, provider, cfg, m, log)
	registry := services.NewGrantRegistry(services.GrantDeps{
		Applications:   s,
		Authorizations: s,
		Tokens:         s,
		Users:          s,
		Builder:        builder,
		Issuer:         issuer,
		Metrics:        m,
		Log:            log,
	}, nil)

	authorizeService := services.NewAuthorizeService(s, s, s, builder, issuer, nil, m, log)
	tokenService := services.NewTokenService(registry, s, s, s, provider, nil, m, log)
	userService := services.NewUserService(s, auth.NewLocalAuthProvider(s), nil, m, log)

	oauthHandler := NewOAuthHandler(authorizeService, tokenService, log)
	oidcHandler := NewOIDCHandler(tokenService, cfg.BaseURL, builder.AllowedScopes())
	authHandler := NewAuthHandler(userService, s, cfg.BaseURL, "identity", log)

	r := gin.New()
	r.Use(sessions.Sessions("identity_session", cookie.NewStore([]byte("session-secret"))))
	r.GET("/", middleware.CSRFMiddleware(), authHandler.Home)
	r.GET("/login", middleware.CSRFMiddleware(), authHandler.LoginPage)
	r.POST("/login", middleware.CSRFMiddleware(), authHandler.Login)
	r.GET("/logout", middleware.CSRFMiddleware(), authHandler.LogoutPage)
	r.POST("/logout", middleware.CSRFMiddleware(), authHandler.Logout)
	r.GET("/.well-known/openid-configuration", oidcHandler.Discovery)
	connect := r.Group("/connect")
	connect.GET("/authorize", oauthHandler.Authorize)
	connect.POST("/token", oauthHandler.Token)
	connect.POST("/revoke", oauthHandler.Revoke)
	connect.GET("/userinfo", middleware.RequireBearer(tokenService), oidcHandler.UserInfo)
	connect.POST("/userinfo", middleware.RequireBearer(tokenService), oidcHandler.UserInfo)

	return &testServer{
		router:  r,
		store:   s,
		tokens:  tokenService,
		cookies: map[string]*http.Cookie{},
	}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(ts.cookies, c.Name)
			continue
		}
		ts.cookies[c.Name] = c
	}
	return w
}

func (ts *testServer) get(target string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (ts *testServer) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(req)
}

// login signs alice in through the form and returns the redirect target.
func (ts *testServer) login(t *testing.T, returnURL string) string {
	t.Helper()
	page := ts.get("/login?returnUrl=" + url.QueryEscape(returnURL))
	require.Equal(t, http.StatusOK, page.Code)
	match := csrfPattern.FindStringSubmatch(page.Body.String())
	require.Len(t, match, 2, "login page carries a CSRF token")

	w := ts.postForm("/login", url.Values{
		"csrf_token": {match[1]},
		"username":   {"alice"},
		"password":   {testPassword},
		"returnUrl":  {returnURL},
	})
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	return w.Header().Get("Location")
}

func authorizeURL(scope, verifier string, override map[string]string) string {
	q := url.Values{
		"client_id":             {testClientID},
		"redirect_uri":          {testRedirectURI},
		"response_type":         {"code"},
		"scope":                 {scope},
		"state":                 {"af0ifjsldkj"},
		"nonce":                 {"n-0S6_WzA2Mj"},
		"code_challenge":        {oauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"S256"},
	}
	for k, v := range override {
		if v == "" {
			q.Del(k)
			continue
		}
		q.Set(k, v)
	}
	return "/connect/authorize?" + q.Encode()
}

// authorize runs the browser part of the code flow for a signed-in user and
// returns the code and verifier.
func (ts *testServer) authorize(t *testing.T, scope string) (string, string) {
	t.Helper()
	verifier := oauth2.GenerateVerifier()
	w := ts.get(authorizeURL(scope, verifier, nil))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "app.example.com", loc.Host)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	return code, verifier
}

func codeForm(code, verifier string) url.Values {
	return url.Values{
		"grant_type":    {services.GrantTypeAuthorizationCode},
		"client_id":     {testClientID},
		"code":          {code},
		"redirect_uri":  {testRedirectURI},
		"code_verifier": {verifier},
	}
}
