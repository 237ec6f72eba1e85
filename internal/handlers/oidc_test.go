package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-authgate/identity/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscovery(t *testing.T) {
	ts := newTestServer(t)

	w := ts.get("/.well-known/openid-configuration")
	require.Equal(t, http.StatusOK, w.Code)

	var meta discoveryMetadata
	decodeJSON(t, w, &meta)
	assert.Equal(t, testBaseURL, meta.Issuer)
	assert.Equal(t, testBaseURL+"/connect/authorize", meta.AuthorizationEndpoint)
	assert.Equal(t, testBaseURL+"/connect/token", meta.TokenEndpoint)
	assert.Equal(t, testBaseURL+"/connect/userinfo", meta.UserinfoEndpoint)
	assert.Equal(t, testBaseURL+"/connect/revoke", meta.RevocationEndpoint)
	assert.Equal(t, []string{"code"}, meta.ResponseTypesSupported)
	assert.Equal(t, []string{"S256"}, meta.CodeChallengeMethodsSupported)
	assert.ElementsMatch(t, []string{"authorization_code", "refresh_token"}, meta.GrantTypesSupported)
	assert.Contains(t, meta.ScopesSupported, "openid")
	assert.Contains(t, meta.ScopesSupported, "offline_access")
	assert.Contains(t, meta.ScopesSupported, "identity-api")
}

func TestUserInfo(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "")
	code, verifier := ts.authorize(t, "openid profile email")

	w := ts.postForm("/connect/token", codeForm(code, verifier))
	require.Equal(t, http.StatusOK, w.Code)
	var tokens services.TokenResponse
	decodeJSON(t, w, &tokens)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + tokens.AccessToken, http.StatusUnauthorized},
		{"id token", "Bearer " + tokens.IDToken, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + tokens.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + tokens.AccessToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/connect/userinfo", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := ts.do(req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/connect/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w = ts.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	var info services.UserInfo
	decodeJSON(t, w, &info)
	assert.Equal(t, "Alice Liddell", info.Name)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, []string{"user"}, info.Roles)

	// revocation is visible to userinfo straight away
	w = ts.postForm("/connect/revoke", url.Values{
		"client_id": {testClientID},
		"token":     {tokens.AccessToken},
	})
	require.Equal(t, http.StatusOK, w.Code)
	req = httptest.NewRequest(http.MethodGet, "/connect/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, ts.do(req).Code)
}
