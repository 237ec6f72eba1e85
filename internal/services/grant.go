package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/principal"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"

	"go.uber.org/zap"
)

// GrantRequest is the form posted to the token endpoint.
type GrantRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// authorization_code
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token
	RefreshToken string
	Scope        string
}

// GrantHandler validates one grant type and returns the issued tokens.
type GrantHandler interface {
	Handle(ctx context.Context, req *GrantRequest) (*TokenResponse, error)
}

// GrantHandlerFunc adapts a function to GrantHandler.
type GrantHandlerFunc func(ctx context.Context, req *GrantRequest) (*TokenResponse, error)

func (f GrantHandlerFunc) Handle(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
	return f(ctx, req)
}

// GrantRegistry maps grant_type values to their handlers. It is built once
// at startup and only read afterwards.
type GrantRegistry map[string]GrantHandler

// Lookup returns ErrUnsupportedGrantType for unknown or empty grant types.
func (r GrantRegistry) Lookup(grantType string) (GrantHandler, error) {
	h, ok := r[grantType]
	if !ok || grantType == "" {
		return nil, ErrUnsupportedGrantType
	}
	return h, nil
}

// GrantDeps is what every grant handler needs.
type GrantDeps struct {
	Applications   core.ApplicationStore
	Authorizations core.AuthorizationStore
	Tokens         core.TokenStore
	Users          core.UserStore
	Builder        *principal.Builder
	Issuer         *Issuer
	Audit          *AuditService
	Metrics        core.Recorder
	Log            *zap.SugaredLogger
	Clock          core.Clock
}

func (d GrantDeps) now() time.Time {
	if d.Clock == nil {
		return core.SystemClock()
	}
	return d.Clock()
}

// authenticateClient resolves the client and checks that it may use the
// token endpoint with the given grant permission.
func (d GrantDeps) authenticateClient(
	ctx context.Context,
	clientID, secret, grantPermission string,
) (*models.Application, error) {
	if clientID == "" {
		return nil, ErrInvalidRequest
	}

	app, err := d.Applications.FindApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if !app.IsPublic() && !app.ValidateClientSecret(secret) {
		return nil, ErrInvalidClient
	}
	if !app.HasPermission(models.PermissionEndpointToken) || !app.HasPermission(grantPermission) {
		return nil, ErrUnauthorizedClient
	}
	return app, nil
}

// loadGrantToken finds the stored token for raw and checks that it has the
// expected type and was issued to app. Status and expiry are left to the
// caller.
func (d GrantDeps) loadGrantToken(
	ctx context.Context,
	raw string,
	want models.TokenType,
	app *models.Application,
) (*models.Token, error) {
	t, err := d.Tokens.FindTokenByReferenceID(ctx, token.ReferenceID(raw))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, forbidden("unknown " + string(want))
		}
		return nil, fmt.Errorf("load %s: %w", want, err)
	}

	if t.Type != want {
		return nil, forbidden("token type mismatch")
	}
	if t.ApplicationID != app.ID || t.Data().Presenter != app.ClientID {
		return nil, forbidden("presenter mismatch")
	}
	return t, nil
}

// checkUsable rejects tokens that are not valid or have expired. Expiry is
// checked independently of the status column.
func (d GrantDeps) checkUsable(t *models.Token) error {
	if t.Status != models.TokenStatusValid {
		return forbidden(string(t.Type) + " is " + string(t.Status))
	}
	if t.IsExpired(d.now()) {
		return forbidden(string(t.Type) + " expired")
	}
	return nil
}

func (d GrantDeps) loadValidAuthorization(ctx context.Context, t *models.Token) (*models.Authorization, error) {
	id := t.AuthorizationRef()
	if id == "" {
		return nil, forbidden("token has no authorization")
	}
	auth, err := d.Authorizations.FindAuthorizationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, forbidden("authorization not found")
		}
		return nil, fmt.Errorf("load authorization: %w", err)
	}
	if !auth.IsValid() {
		return nil, forbidden("authorization revoked")
	}
	return auth, nil
}

// loadActiveUser re-reads the subject so role or status changes since the
// token was issued take effect.
func (d GrantDeps) loadActiveUser(ctx context.Context, subject string) (*models.User, error) {
	user, err := d.Users.GetUserByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, forbidden("user not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, forbidden("user inactive")
	}
	return user, nil
}

func (d GrantDeps) rebuildPrincipal(
	user *models.User,
	app *models.Application,
	scopes []string,
	payload models.TokenPayload,
) (*principal.Principal, error) {
	p, err := d.Builder.Build(principal.IdentityFromUser(user), principal.Request{
		ClientID: app.ClientID,
		Scopes:   scopes,
		AuthTime: payload.AuthTime,
	})
	if err != nil {
		return nil, fmt.Errorf("build principal: %w", err)
	}
	return p, nil
}

// NewGrantRegistry registers both grant types behind the standard chain.
// WithForbiddenMapping sits outermost so the logging, metrics and audit
// layers still see the detailed reason.
func NewGrantRegistry(deps GrantDeps, audit *AuditService) GrantRegistry {
	wrap := func(h GrantHandler) GrantHandler {
		return Chain(h,
			WithForbiddenMapping(deps.Log),
			WithLogging(deps.Log),
			WithMetrics(deps.Metrics),
			WithAudit(audit),
		)
	}
	return GrantRegistry{
		GrantTypeAuthorizationCode: wrap(NewAuthorizationCodeGrant(deps)),
		GrantTypeRefreshToken:      wrap(NewRefreshTokenGrant(deps)),
	}
}
