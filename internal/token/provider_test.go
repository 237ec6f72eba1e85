package token

import (
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/identity/internal/principal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testIssuer = "http://localhost:8080"
	testSecret = "test-secret-key-for-jwt-signing-0123456789"
)

func testPrincipal(t *testing.T) *principal.Principal {
	t.Helper()
	p, err := principal.NewBuilder("identity-api", []string{"identity-api"}).Build(
		principal.Identity{ID: "user-1", Name: "Alice", Email: "alice@example.com", Roles: []string{"admin"}},
		principal.Request{
			ClientID: "spa",
			Scopes:   []string{"openid", "identity-api"},
			AuthTime: time.Now().Add(-time.Minute),
		},
	)
	require.NoError(t, err)
	return p
}

func parseUnverified(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(raw, claims)
	require.NoError(t, err)
	return claims
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	provider := NewProvider(testIssuer, testSecret)
	now := time.Now()

	raw, err := provider.IssueAccessToken(testPrincipal(t), "jti-1", now, now.Add(10*time.Minute))
	require.NoError(t, err)

	claims, err := provider.ValidateAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "spa", claims.ClientID)
	assert.Equal(t, []string{"openid", "identity-api"}, claims.Scopes())
	assert.Equal(t, jwt.ClaimStrings{"identity-api"}, claims.Audience)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, []string{"admin"}, claims.Roles)
	assert.Equal(t, UseAccess, claims.TokenUse)
}

func TestValidateAccessToken_Failures(t *testing.T) {
	provider := NewProvider(testIssuer, testSecret)
	now := time.Now()
	pr := testPrincipal(t)

	expired, err := provider.IssueAccessToken(pr, "jti-1", now.Add(-time.Hour), now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = provider.ValidateAccessToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	valid, err := provider.IssueAccessToken(pr, "jti-2", now, now.Add(time.Minute))
	require.NoError(t, err)

	_, err = NewProvider(testIssuer, "another-secret-another-secret-xx").ValidateAccessToken(valid)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong key")

	_, err = NewProvider("https://other-issuer", testSecret).ValidateAccessToken(valid)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	idToken, err := provider.IssueIdentityToken(pr, IdentityParams{IssuedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	_, err = provider.ValidateAccessToken(idToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "identity tokens are not access tokens")

	_, err = provider.ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueIdentityToken_Claims(t *testing.T) {
	provider := NewProvider(testIssuer, testSecret)
	now := time.Now()
	pr := testPrincipal(t)

	raw, err := provider.IssueIdentityToken(pr, IdentityParams{
		Nonce:       "n-123",
		AccessToken: "access-token-value",
		IssuedAt:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
	})
	require.NoError(t, err)

	claims := parseUnverified(t, raw)
	assert.Equal(t, "spa", claims["aud"])
	assert.Equal(t, "spa", claims["azp"])
	assert.Equal(t, "n-123", claims["nonce"])
	assert.Equal(t, ComputeAtHash("access-token-value"), claims["at_hash"])
	assert.Equal(t, "Alice", claims["name"])
	assert.Equal(t, "alice@example.com", claims["email"])
	assert.NotContains(t, claims, "scope")
	assert.NotContains(t, claims, "client_id")
	assert.Contains(t, claims, "auth_time")
}

func TestComputeAtHash(t *testing.T) {
	hash := ComputeAtHash("access-token-value")
	assert.Len(t, hash, 22, "128 bits, unpadded base64url")
	assert.Equal(t, hash, ComputeAtHash("access-token-value"))
	assert.NotEqual(t, hash, ComputeAtHash("access-token-value2"))
}

func TestGenerateOpaque(t *testing.T) {
	a, err := GenerateOpaque()
	require.NoError(t, err)
	b, err := GenerateOpaque()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.Len(t, ReferenceID(a), 64)
	assert.Equal(t, ReferenceID(a), ReferenceID(a))
	assert.NotEqual(t, a, ReferenceID(a), "the raw value is never the lookup key")
}

func TestVerifyPKCE(t *testing.T) {
	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)

	tests := []struct {
		name      string
		verifier  string
		challenge string
		method    string
		want      bool
	}{
		{name: "matching verifier", verifier: verifier, challenge: challenge, method: "S256", want: true},
		{name: "other verifier", verifier: oauth2.GenerateVerifier(), challenge: challenge, method: "S256"},
		{name: "plain method rejected", verifier: verifier, challenge: verifier, method: "plain"},
		{name: "missing method", verifier: verifier, challenge: challenge, method: ""},
		{name: "missing challenge", verifier: verifier, challenge: "", method: "S256"},
		{name: "short verifier", verifier: "abc", challenge: oauth2.S256ChallengeFromVerifier("abc"), method: "S256"},
		{
			name:      "illegal characters",
			verifier:  strings.Repeat("a", 42) + "+",
			challenge: oauth2.S256ChallengeFromVerifier(strings.Repeat("a", 42) + "+"),
			method:    "S256",
		},
		{
			name:      "maximum length",
			verifier:  strings.Repeat("~", 128),
			challenge: oauth2.S256ChallengeFromVerifier(strings.Repeat("~", 128)),
			method:    "S256",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPKCE(tt.verifier, tt.challenge, tt.method))
		})
	}
}

// A verifier passes only when it is the preimage of the stored challenge.
func TestVerifyPKCE_Property(t *testing.T) {
	for range 50 {
		v1 := oauth2.GenerateVerifier()
		v2 := oauth2.GenerateVerifier()
		c1 := oauth2.S256ChallengeFromVerifier(v1)
		assert.True(t, VerifyPKCE(v1, c1, PKCEMethodS256))
		assert.False(t, VerifyPKCE(v2, c1, PKCEMethodS256))
	}
}
