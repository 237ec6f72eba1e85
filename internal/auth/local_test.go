package auth

import (
	"context"
	"testing"

	"github.com/go-authgate/identity/internal/logging"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*LocalAuthProvider, *store.Store) {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewLocalAuthProvider(s), s
}

func createUser(t *testing.T, s *store.Store, username, password string, active bool) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsActive:     active,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestLocalAuthProvider_Authenticate(t *testing.T) {
	p, s := newTestProvider(t)
	ctx := context.Background()

	alice := createUser(t, s, "alice", "correct horse", true)
	createUser(t, s, "bob", "battery staple", false)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid credentials", "alice", "correct horse", nil},
		{"wrong password", "alice", "wrong", ErrInvalidCredentials},
		{"unknown user", "carol", "whatever", ErrInvalidCredentials},
		{"empty password", "alice", "", ErrInvalidCredentials},
		{"inactive user", "bob", "battery staple", ErrUserInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := p.Authenticate(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, alice.ID, user.ID)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	other, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "bcrypt salts every hash")
}
