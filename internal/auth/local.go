package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// LocalAuthProvider checks credentials against the user table.
type LocalAuthProvider struct {
	users core.UserStore
}

func NewLocalAuthProvider(users core.UserStore) *LocalAuthProvider {
	return &LocalAuthProvider{users: users}
}

// Authenticate returns the user when password matches its stored hash.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (p *LocalAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := p.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// Name returns provider name for logging
func (p *LocalAuthProvider) Name() string {
	return "local"
}

// HashPassword returns the bcrypt hash stored in User.PasswordHash.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
