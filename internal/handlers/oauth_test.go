package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestCodeFlow_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	verifier := oauth2.GenerateVerifier()
	start := authorizeURL("openid profile offline_access identity-api", verifier, nil)

	// no session yet
	w := ts.get(start)
	require.Equal(t, http.StatusFound, w.Code)
	loginURL, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, services.LoginPath, loginURL.Path)
	returnURL := loginURL.Query().Get("returnUrl")
	assert.Equal(t, start, returnURL)

	// sign in and come back
	assert.Equal(t, start, ts.login(t, returnURL))
	w = ts.get(start)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	callback, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "af0ifjsldkj", callback.Query().Get("state"))
	code := callback.Query().Get("code")
	require.NotEmpty(t, code)

	// exchange
	w = ts.postForm("/connect/token", codeForm(code, verifier))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var tokens services.TokenResponse
	decodeJSON(t, w, &tokens)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEmpty(t, tokens.IDToken)

	// userinfo
	req := httptest.NewRequest(http.MethodGet, "/connect/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info map[string]any
	decodeJSON(t, w, &info)
	assert.NotEmpty(t, info["sub"])
	assert.Equal(t, "Alice Liddell", info["name"])

	// refresh
	w = ts.postForm("/connect/token", url.Values{
		"grant_type":    {services.GrantTypeRefreshToken},
		"client_id":     {testClientID},
		"refresh_token": {tokens.RefreshToken},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed services.TokenResponse
	decodeJSON(t, w, &refreshed)
	assert.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken)

	// the rotated-out refresh token is dead
	w = ts.postForm("/connect/token", url.Values{
		"grant_type":    {services.GrantTypeRefreshToken},
		"client_id":     {testClientID},
		"refresh_token": {tokens.RefreshToken},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// replaying the code is rejected the same way
	w = ts.postForm("/connect/token", codeForm(code, verifier))
	require.Equal(t, http.StatusForbidden, w.Code)
	var failure oauthError
	decodeJSON(t, w, &failure)
	assert.Equal(t, "invalid_grant", failure.Error)
}

func TestAuthorize_HardFailuresNeverRedirect(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "")
	verifier := oauth2.GenerateVerifier()

	tests := []struct {
		name     string
		override map[string]string
		status   int
		body     string
	}{
		{"unknown client", map[string]string{"client_id": "nobody"}, http.StatusBadRequest, "Unknown client"},
		{"unregistered redirect", map[string]string{"redirect_uri": "https://evil.example.com/cb"}, http.StatusBadRequest, "Invalid redirect URI"},
		{"implicit flow", map[string]string{"response_type": "token"}, http.StatusBadRequest, "unsupported_response_type"},
		{"missing challenge", map[string]string{"code_challenge": ""}, http.StatusBadRequest, "invalid_request"},
		{"plain challenge", map[string]string{"code_challenge_method": "plain"}, http.StatusBadRequest, "invalid_request"},
		{"forbidden scope", map[string]string{"scope": "openid billing"}, http.StatusBadRequest, "invalid_scope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.get(authorizeURL("openid", verifier, tt.override))
			assert.Equal(t, tt.status, w.Code)
			assert.Empty(t, w.Header().Get("Location"))
			assert.Contains(t, w.Body.String(), tt.body)
			assert.NotContains(t, w.Body.String(), "evil.example.com")
		})
	}
}

func TestToken_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "")
	code, verifier := ts.authorize(t, "openid")

	tests := []struct {
		name   string
		form   url.Values
		status int
		error  string
	}{
		{
			name:   "missing grant type",
			form:   url.Values{"client_id": {testClientID}},
			status: http.StatusBadRequest,
			error:  "unsupported_grant_type",
		},
		{
			name:   "password grant",
			form:   url.Values{"grant_type": {"password"}, "client_id": {testClientID}},
			status: http.StatusBadRequest,
			error:  "unsupported_grant_type",
		},
		{
			name: "missing code",
			form: url.Values{
				"grant_type": {services.GrantTypeAuthorizationCode},
				"client_id":  {testClientID},
			},
			status: http.StatusBadRequest,
			error:  "invalid_request",
		},
		{
			name:   "unknown client",
			form:   func() url.Values { f := codeForm(code, verifier); f.Set("client_id", "nobody"); return f }(),
			status: http.StatusBadRequest,
			error:  "invalid_client",
		},
		{
			name:   "wrong verifier",
			form:   codeForm(code, oauth2.GenerateVerifier()),
			status: http.StatusForbidden,
			error:  "invalid_grant",
		},
		{
			name:   "unknown code",
			form:   codeForm("not-a-code", verifier),
			status: http.StatusForbidden,
			error:  "invalid_grant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.postForm("/connect/token", tt.form)
			assert.Equal(t, tt.status, w.Code)
			var body oauthError
			decodeJSON(t, w, &body)
			assert.Equal(t, tt.error, body.Error)
		})
	}

	// none of the failures consumed the code
	w := ts.postForm("/connect/token", codeForm(code, verifier))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestToken_BasicAuth(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	app := &models.Application{
		ClientID:     "backend",
		DisplayName:  "Backend",
		ClientType:   models.ClientTypeConfidential,
		RedirectURIs: models.StringArray{testRedirectURI},
		Permissions: models.StringArray{
			models.PermissionEndpointAuthorization,
			models.PermissionEndpointToken,
			models.PermissionGrantAuthorizationCode,
			models.PermissionResponseTypeCode,
		},
	}
	secret, err := app.GenerateClientSecret()
	require.NoError(t, err)
	require.NoError(t, ts.store.CreateApplication(ctx, app))

	ts.login(t, "")
	w := ts.get("/connect/authorize?" + url.Values{
		"client_id":     {"backend"},
		"redirect_uri":  {testRedirectURI},
		"response_type": {"code"},
		"scope":         {"openid"},
	}.Encode())
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	code := loc.Query().Get("code")

	exchange := func(user, pass string) *httptest.ResponseRecorder {
		form := url.Values{
			"grant_type":   {services.GrantTypeAuthorizationCode},
			"code":         {code},
			"redirect_uri": {testRedirectURI},
		}
		req := httptest.NewRequest(http.MethodPost, "/connect/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(url.QueryEscape(user), url.QueryEscape(pass))
		return ts.do(req)
	}

	w = exchange("backend", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	w = exchange("backend", secret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRevoke(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "")
	code, verifier := ts.authorize(t, "openid offline_access")

	w := ts.postForm("/connect/token", codeForm(code, verifier))
	require.Equal(t, http.StatusOK, w.Code)
	var tokens services.TokenResponse
	decodeJSON(t, w, &tokens)

	revoke := func(tok string) *httptest.ResponseRecorder {
		return ts.postForm("/connect/revoke", url.Values{
			"client_id": {testClientID},
			"token":     {tok},
		})
	}

	assert.Equal(t, http.StatusOK, revoke(tokens.RefreshToken).Code)
	assert.Equal(t, http.StatusOK, revoke(tokens.RefreshToken).Code, "revoking twice is fine")
	assert.Equal(t, http.StatusOK, revoke("never-issued").Code)

	w = ts.postForm("/connect/token", url.Values{
		"grant_type":    {services.GrantTypeRefreshToken},
		"client_id":     {testClientID},
		"refresh_token": {tokens.RefreshToken},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.postForm("/connect/revoke", url.Values{"client_id": {testClientID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.postForm("/connect/revoke", url.Values{"client_id": {"nobody"}, "token": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenError(t *testing.T) {
	status, body := tokenError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "server_error", body.Error)
	assert.Empty(t, body.Description, "internal errors are not described")
}
