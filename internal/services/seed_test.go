package services

import (
	"context"
	"testing"

	"github.com/go-authgate/identity/internal/auth"
	"github.com/go-authgate/identity/internal/logging"
	"github.com/go-authgate/identity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_CreatesScopeClientAndAdmin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cfg := newTestConfig()

	require.NoError(t, NewSeedService(s, s, s, cfg, nil, logging.Nop()).Seed(ctx))

	scope, err := s.FindScopeByName(ctx, testAPIScope)
	require.NoError(t, err)
	assert.Equal(t, "Identity API", scope.DisplayName)
	assert.Equal(t, models.StringArray{"identity-resource"}, scope.Resources)

	app, err := s.FindApplicationByClientID(ctx, testSPAClientID)
	require.NoError(t, err)
	assert.True(t, app.IsPublic())
	assert.Equal(t, models.ConsentTypeImplicit, app.ConsentType)
	assert.True(t, app.RequiresPKCE())
	assert.True(t, app.HasRedirectURI(testRedirectURI))
	for _, perm := range []string{
		models.PermissionEndpointAuthorization,
		models.PermissionEndpointToken,
		models.PermissionGrantAuthorizationCode,
		models.PermissionGrantRefreshToken,
		models.PermissionResponseTypeCode,
	} {
		assert.True(t, app.HasPermission(perm), perm)
	}
	assert.True(t, app.HasScopePermission(testAPIScope))

	admin, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsActive)
	assert.True(t, admin.IsAdmin())

	provider := auth.NewLocalAuthProvider(s)
	_, err = provider.Authenticate(ctx, "admin", testPassword)
	require.NoError(t, err)
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cfg := newTestConfig()
	seed := NewSeedService(s, s, s, cfg, nil, logging.Nop())

	require.NoError(t, seed.Seed(ctx))
	first, err := s.FindApplicationByClientID(ctx, testSPAClientID)
	require.NoError(t, err)

	require.NoError(t, seed.Seed(ctx))
	second, err := s.FindApplicationByClientID(ctx, testSPAClientID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	users, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users)

	scopes, err := s.FindScopesByNames(ctx, []string{testAPIScope})
	require.NoError(t, err)
	assert.Len(t, scopes, 1)
}

func TestSeed_UpdatesRedirectURIs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cfg := newTestConfig()

	require.NoError(t, NewSeedService(s, s, s, cfg, nil, logging.Nop()).Seed(ctx))

	// a later deployment promotes the client to a new origin
	cfg.SPARedirectURIs = []string{"https://prod.example.com/callback"}
	cfg.SPAPostLogoutRedirectURIs = []string{"https://prod.example.com/"}
	cfg.SPAClientName = "Renamed"
	require.NoError(t, NewSeedService(s, s, s, cfg, nil, logging.Nop()).Seed(ctx))

	app, err := s.FindApplicationByClientID(ctx, testSPAClientID)
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{"https://prod.example.com/callback"}, app.RedirectURIs)
	assert.Equal(t, models.StringArray{"https://prod.example.com/"}, app.PostLogoutRedirectURIs)
	assert.False(t, app.HasRedirectURI(testRedirectURI))
	assert.Equal(t, "Test SPA", app.DisplayName, "only the redirect sets are refreshed")
}

func TestSeed_GeneratedAdminPassword(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cfg := newTestConfig()
	cfg.DefaultAdminPassword = ""

	require.NoError(t, NewSeedService(s, s, s, cfg, nil, logging.Nop()).Seed(ctx))

	admin, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, admin.PasswordHash)

	_, err = auth.NewLocalAuthProvider(s).Authenticate(ctx, "admin", "")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSeed_IncompleteConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cfg := newTestConfig()
	cfg.APIScopeName = " "
	require.ErrorIs(t, NewSeedService(s, s, s, cfg, nil, logging.Nop()).Seed(ctx), ErrSeedConfig)

	cfg = newTestConfig()
	cfg.SPAClientID = ""
	require.ErrorIs(t, NewSeedService(s, s, s, cfg, nil, logging.Nop()).Seed(ctx), ErrSeedConfig)
}
