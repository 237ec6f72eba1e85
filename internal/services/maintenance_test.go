package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrune(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	// an unused code, and a completed ad-hoc exchange
	unused, _ := env.issueCode(t, "openid")
	env.exchange(t, "openid")

	result, err := env.maint.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Tokens, "nothing is older than the retention window yet")
	assert.Zero(t, result.Authorizations)

	// past every expiry and the retention window
	env.maint.now = func() time.Time {
		return time.Now().Add(env.config.AccessTokenExpiration + env.config.TokenPruneRetention + time.Minute)
	}
	result, err = env.maint.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Tokens, "two codes and one access token")
	assert.Equal(t, int64(2), result.Authorizations)

	_, err = env.store.FindTokenByReferenceID(ctx, token.ReferenceID(unused))
	require.Error(t, err)
}

func TestPrune_KeepsLiveGrants(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	resp := env.exchange(t, "openid offline_access")

	// the code and access token are gone, the refresh token is not
	env.maint.now = func() time.Time {
		return time.Now().Add(env.config.AccessTokenExpiration + env.config.TokenPruneRetention + time.Minute)
	}
	result, err := env.maint.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Tokens)
	assert.Zero(t, result.Authorizations, "the refresh token keeps its authorization alive")

	_, err = env.tokens.Exchange(ctx, refreshGrant(resp.RefreshToken, ""))
	require.NoError(t, err)
}

func TestRevokeAuthorization(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	require.ErrorIs(t, env.maint.RevokeAuthorization(ctx, "missing", "test"), ErrAuthorizationNotFound)

	resp := env.exchange(t, "openid offline_access")
	claims, err := env.tokens.ValidateAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	row, err := env.store.FindTokenByID(ctx, claims.ID)
	require.NoError(t, err)

	require.NoError(t, env.maint.RevokeAuthorization(ctx, row.AuthorizationRef(), "admin"))

	auth, err := env.store.FindAuthorizationByID(ctx, row.AuthorizationRef())
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationStatusRevoked, auth.Status)

	tokens, err := env.store.FindTokensByAuthorizationID(ctx, auth.ID)
	require.NoError(t, err)
	for _, tok := range tokens {
		if tok.Type == models.TokenTypeAuthorizationCode {
			assert.Equal(t, models.TokenStatusRedeemed, tok.Status, "redeemed codes keep their status")
			continue
		}
		assert.Equal(t, models.TokenStatusRevoked, tok.Status, string(tok.Type))
	}
}

func TestRevokeUserGrants(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.exchange(t, "openid offline_access")
	env.exchange(t, "openid offline_access")

	n, err := env.maint.RevokeUserGrants(ctx, env.user.ID, testSPAClientID, "logout_everywhere")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, env.countTokens(t, models.TokenTypeRefreshToken, models.TokenStatusValid))

	n, err = env.maint.RevokeUserGrants(ctx, env.user.ID, testSPAClientID, "again")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = env.maint.RevokeUserGrants(ctx, env.user.ID, "nobody", "x")
	require.ErrorIs(t, err, ErrInvalidClient)
}
