package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"
	"github.com/go-authgate/identity/internal/token"

	"go.uber.org/zap"
)

// UserInfo is the body of the userinfo endpoint.
type UserInfo struct {
	Subject string   `json:"sub"`
	Name    string   `json:"name,omitempty"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

// TokenService fronts the token endpoint and validates bearer tokens.
type TokenService struct {
	grants         GrantRegistry
	apps           core.ApplicationStore
	tokens         core.TokenStore
	authorizations core.AuthorizationStore
	provider       *token.Provider
	audit          *AuditService
	metrics        core.Recorder
	log            *zap.SugaredLogger
	now            core.Clock
}

func NewTokenService(
	grants GrantRegistry,
	apps core.ApplicationStore,
	tokens core.TokenStore,
	authorizations core.AuthorizationStore,
	provider *token.Provider,
	audit *AuditService,
	m core.Recorder,
	log *zap.SugaredLogger,
) *TokenService {
	return &TokenService{
		grants:         grants,
		apps:           apps,
		tokens:         tokens,
		authorizations: authorizations,
		provider:       provider,
		audit:          audit,
		metrics:        m,
		log:            log,
		now:            core.SystemClock,
	}
}

// Exchange dispatches req to the handler registered for its grant type.
func (s *TokenService) Exchange(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
	h, err := s.grants.Lookup(req.GrantType)
	if err != nil {
		return nil, err
	}
	return h.Handle(ctx, req)
}

// ValidateAccessToken checks the JWT and then the stored row and its
// authorization. A token whose authorization was revoked fails even when the
// row itself still reads valid.
func (s *TokenService) ValidateAccessToken(ctx context.Context, raw string) (*token.AccessClaims, error) {
	claims, err := s.validateAccessToken(ctx, raw)
	switch {
	case err == nil:
		s.metrics.RecordTokenValidation("valid")
	case errors.Is(err, token.ErrExpiredToken):
		s.metrics.RecordTokenValidation("expired")
	case errors.Is(err, token.ErrInvalidToken):
		s.metrics.RecordTokenValidation("invalid")
	default:
		s.metrics.RecordTokenValidation("error")
	}
	return claims, err
}

func (s *TokenService) validateAccessToken(ctx context.Context, raw string) (*token.AccessClaims, error) {
	claims, err := s.provider.ValidateAccessToken(raw)
	if err != nil {
		return nil, err
	}

	row, err := s.tokens.FindTokenByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	if row.Type != models.TokenTypeAccessToken || row.ReferenceID != token.ReferenceID(raw) {
		return nil, token.ErrInvalidToken
	}
	if row.Status != models.TokenStatusValid {
		return nil, token.ErrInvalidToken
	}
	if row.IsExpired(s.now()) {
		return nil, token.ErrExpiredToken
	}

	if ref := row.AuthorizationRef(); ref != "" {
		auth, err := s.authorizations.FindAuthorizationByID(ctx, ref)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, token.ErrInvalidToken
			}
			return nil, fmt.Errorf("load authorization: %w", err)
		}
		if !auth.IsValid() {
			return nil, token.ErrInvalidToken
		}
	}
	return claims, nil
}

// UserInfo projects the identity claims of a validated access token.
func (s *TokenService) UserInfo(claims *token.AccessClaims) *UserInfo {
	return &UserInfo{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Roles:   claims.Roles,
	}
}

// Revoke implements RFC 7009. Unknown tokens and tokens of other clients are
// ignored so the response never reveals whether a token exists.
func (s *TokenService) Revoke(ctx context.Context, raw, clientID, clientSecret string) error {
	if raw == "" || clientID == "" {
		return ErrInvalidRequest
	}

	app, err := s.apps.FindApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrInvalidClient
		}
		return fmt.Errorf("load client: %w", err)
	}
	if !app.IsPublic() && !app.ValidateClientSecret(clientSecret) {
		return ErrInvalidClient
	}
	if !app.HasPermission(models.PermissionEndpointRevocation) {
		return ErrUnauthorizedClient
	}

	t, err := s.tokens.FindTokenByReferenceID(ctx, token.ReferenceID(raw))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load token: %w", err)
	}
	if t.ApplicationID != app.ID || t.Status == models.TokenStatusRevoked {
		return nil
	}
	if t.Type != models.TokenTypeAccessToken && t.Type != models.TokenTypeRefreshToken {
		return nil
	}
	if t.Status.IsTerminal() {
		return nil
	}

	if err := s.tokens.RevokeToken(ctx, t.ID, s.now()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.metrics.RecordTokenRevoked(string(t.Type), "client_request")
	s.audit.Log(ctx, AuditEntry{
		EventType:    models.EventTokenRevoked,
		Severity:     models.SeverityInfo,
		ActorUserID:  t.Subject,
		ResourceType: models.ResourceToken,
		ResourceID:   t.ID,
		Action:       "Token revoked by client",
		Details: models.AuditDetails{
			"client_id":  app.ClientID,
			"token_kind": string(t.Type),
		},
		Success: true,
	})
	return nil
}
