package services

import (
	"context"
	"slices"
	"strings"

	"github.com/go-authgate/identity/internal/models"
)

// RefreshTokenGrant rotates a refresh token. The presented token is redeemed
// and a new one issued in its place.
type RefreshTokenGrant struct {
	GrantDeps
}

func NewRefreshTokenGrant(deps GrantDeps) *RefreshTokenGrant {
	return &RefreshTokenGrant{GrantDeps: deps}
}

func (g *RefreshTokenGrant) Handle(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	app, err := g.authenticateClient(ctx, req.ClientID, req.ClientSecret,
		models.PermissionGrantRefreshToken)
	if err != nil {
		return nil, err
	}

	rt, err := g.loadGrantToken(ctx, req.RefreshToken, models.TokenTypeRefreshToken, app)
	if err != nil {
		return nil, err
	}
	if rt.Status == models.TokenStatusRedeemed {
		g.reportReuse(ctx, rt, app)
		return nil, forbidden("refresh token reuse")
	}
	if err := g.checkUsable(rt); err != nil {
		return nil, err
	}

	payload := rt.Data()
	scopes, err := narrowScopes(payload.Scopes, req.Scope)
	if err != nil {
		return nil, err
	}

	auth, err := g.loadValidAuthorization(ctx, rt)
	if err != nil {
		return nil, err
	}
	user, err := g.loadActiveUser(ctx, rt.Subject)
	if err != nil {
		return nil, err
	}
	p, err := g.rebuildPrincipal(user, app, scopes, payload)
	if err != nil {
		return nil, err
	}

	resp, err := g.Issuer.SignIn(ctx, &SignIn{
		Principal:     p,
		Application:   app,
		Authorization: auth,
		Redeem:        rt,
		GrantType:     GrantTypeRefreshToken,
		RefreshScopes: payload.Scopes,
	})
	if err != nil {
		return nil, err
	}

	g.Audit.Log(ctx, AuditEntry{
		EventType:    models.EventRefreshTokenRotated,
		Severity:     models.SeverityInfo,
		ActorUserID:  user.ID,
		ResourceType: models.ResourceToken,
		ResourceID:   rt.ID,
		Action:       "Refresh token rotated",
		Details: models.AuditDetails{
			"client_id":        app.ClientID,
			"authorization_id": auth.ID,
			"scope":            resp.Scope,
		},
		Success: true,
	})
	return resp, nil
}

// reportReuse records a presentation of an already rotated refresh token.
// The grant itself stays valid; its live replacement keeps working.
func (g *RefreshTokenGrant) reportReuse(ctx context.Context, rt *models.Token, app *models.Application) {
	g.Metrics.RecordRefreshTokenReuse()
	g.Log.Warnw("rotated refresh token presented again",
		"token_id", rt.ID,
		"client_id", app.ClientID,
		"authorization_id", rt.AuthorizationRef(),
	)
	g.Audit.Log(ctx, AuditEntry{
		EventType:    models.EventRefreshTokenReuse,
		Severity:     models.SeverityWarning,
		ActorUserID:  rt.Subject,
		ResourceType: models.ResourceToken,
		ResourceID:   rt.ID,
		Action:       "Rotated refresh token presented again",
		Details: models.AuditDetails{
			"client_id":        app.ClientID,
			"authorization_id": rt.AuthorizationRef(),
		},
		Success: false,
	})
}

// narrowScopes returns granted unless requested names a subset of it. The
// result only shapes the access and identity tokens of this response.
func narrowScopes(granted []string, requested string) ([]string, error) {
	fields := strings.Fields(requested)
	if len(fields) == 0 {
		return granted, nil
	}
	for _, s := range fields {
		if !slices.Contains(granted, s) {
			return nil, ErrInvalidScope
		}
	}
	return fields, nil
}
