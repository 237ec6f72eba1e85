package core

import (
	"context"
	"time"

	"github.com/go-authgate/identity/internal/models"
)

// ApplicationStore persists OAuth clients.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	FindApplicationByClientID(ctx context.Context, clientID string) (*models.Application, error)
	FindApplicationByID(ctx context.Context, id string) (*models.Application, error)
	// FindApplicationsByRedirectURI returns an empty slice when nothing matches.
	FindApplicationsByRedirectURI(ctx context.Context, uri string) ([]models.Application, error)
	UpdateApplication(ctx context.Context, app *models.Application) error
}

// ScopeStore persists scope reference data.
type ScopeStore interface {
	CreateScope(ctx context.Context, scope *models.Scope) error
	FindScopeByName(ctx context.Context, name string) (*models.Scope, error)
	// FindScopesByNames returns only the scopes that exist.
	FindScopesByNames(ctx context.Context, names []string) ([]models.Scope, error)
	FindScopesByResource(ctx context.Context, resource string) ([]models.Scope, error)
	UpdateScope(ctx context.Context, scope *models.Scope) error
}

// AuthorizationStore persists grants. Reads are never cached.
type AuthorizationStore interface {
	CreateAuthorization(ctx context.Context, a *models.Authorization) error
	FindAuthorizationByID(ctx context.Context, id string) (*models.Authorization, error)
	FindAuthorizations(ctx context.Context, subject, applicationID string) ([]models.Authorization, error)
	UpdateAuthorization(ctx context.Context, a *models.Authorization) error
	// RevokeAuthorization flips the grant to revoked and revokes every bound
	// token that has not been redeemed.
	RevokeAuthorization(ctx context.Context, id string, at time.Time) error
	PruneAuthorizations(ctx context.Context, threshold time.Time) (int64, error)
}

// TokenStore persists tokens. Reads are never cached.
type TokenStore interface {
	CreateToken(ctx context.Context, t *models.Token) error
	FindTokenByID(ctx context.Context, id string) (*models.Token, error)
	FindTokenByReferenceID(ctx context.Context, referenceID string) (*models.Token, error)
	FindTokensByAuthorizationID(ctx context.Context, authorizationID string) ([]models.Token, error)
	UpdateToken(ctx context.Context, t *models.Token) error
	// RedeemToken atomically flips a valid token to redeemed. Exactly one of
	// several concurrent callers succeeds.
	RedeemToken(ctx context.Context, id string, at time.Time) error
	RevokeToken(ctx context.Context, id string, at time.Time) error
	PruneTokens(ctx context.Context, threshold time.Time) (int64, error)
	CountTokens(ctx context.Context, tokenType models.TokenType, status models.TokenStatus) (int64, error)
}

// GrantStore is the unit of work used while issuing tokens.
type GrantStore interface {
	AuthorizationStore
	TokenStore
}

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx GrantStore) error) error
}

// UserStore is the read side of the user directory.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	CountUsers(ctx context.Context) (int64, error)
}

// AuditStore persists audit events.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	CreateAuditLogBatch(ctx context.Context, logs []*models.AuditLog) error
	DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error)
}
