package services

import (
	"context"

	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/token"
)

// AuthorizationCodeGrant exchanges an authorization code for tokens.
type AuthorizationCodeGrant struct {
	GrantDeps
}

func NewAuthorizationCodeGrant(deps GrantDeps) *AuthorizationCodeGrant {
	return &AuthorizationCodeGrant{GrantDeps: deps}
}

// Handle validates the code against its stored row, verifies PKCE, re-reads
// the user and issues tokens. The code is redeemed in the same transaction
// that stores the new tokens.
func (g *AuthorizationCodeGrant) Handle(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
	if req.Code == "" || req.RedirectURI == "" {
		return nil, ErrInvalidRequest
	}

	app, err := g.authenticateClient(ctx, req.ClientID, req.ClientSecret,
		models.PermissionGrantAuthorizationCode)
	if err != nil {
		return nil, err
	}

	code, err := g.loadGrantToken(ctx, req.Code, models.TokenTypeAuthorizationCode, app)
	if err != nil {
		return nil, err
	}
	if err := g.checkUsable(code); err != nil {
		return nil, err
	}

	payload := code.Data()
	if payload.RedirectURI != req.RedirectURI {
		return nil, forbidden("redirect_uri mismatch")
	}
	if payload.CodeChallenge != "" || app.RequiresPKCE() {
		if !token.VerifyPKCE(req.CodeVerifier, payload.CodeChallenge, payload.CodeChallengeMethod) {
			return nil, forbidden("pkce verification failed")
		}
	}

	auth, err := g.loadValidAuthorization(ctx, code)
	if err != nil {
		return nil, err
	}
	user, err := g.loadActiveUser(ctx, code.Subject)
	if err != nil {
		return nil, err
	}
	p, err := g.rebuildPrincipal(user, app, payload.Scopes, payload)
	if err != nil {
		return nil, err
	}

	resp, err := g.Issuer.SignIn(ctx, &SignIn{
		Principal:     p,
		Application:   app,
		Authorization: auth,
		Redeem:        code,
		GrantType:     GrantTypeAuthorizationCode,
		Nonce:         payload.Nonce,
	})
	if err != nil {
		return nil, err
	}

	g.Audit.Log(ctx, AuditEntry{
		EventType:    models.EventAuthorizationCodeRedeemed,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ResourceType: models.ResourceToken,
		ResourceID:   code.ID,
		Action:       "Authorization code exchanged for tokens",
		Details: models.AuditDetails{
			"client_id":        app.ClientID,
			"authorization_id": auth.ID,
			"scope":            resp.Scope,
			"refresh_issued":   resp.RefreshToken != "",
		},
		Success: true,
	})
	return resp, nil
}
