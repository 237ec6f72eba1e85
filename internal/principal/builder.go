package principal

import (
	"slices"

	"github.com/go-authgate/identity/internal/models"
)

var bothTokens = []Destination{DestinationAccessToken, DestinationIdentityToken}

// Builder turns an identity and a request into a Principal.
type Builder struct {
	allowed   []string
	audiences []string
}

// NewBuilder returns a builder that grants at most openid, profile,
// offline_access and apiScope, and stamps audiences on every principal.
func NewBuilder(apiScope string, audiences []string) *Builder {
	return &Builder{
		allowed: []string{
			models.ScopeOpenID,
			models.ScopeProfile,
			models.ScopeOfflineAccess,
			apiScope,
		},
		audiences: slices.Clone(audiences),
	}
}

// AllowedScopes lists the scopes a principal may carry.
func (b *Builder) AllowedScopes() []string {
	return slices.Clone(b.allowed)
}

// Build assembles the principal. Requested scopes outside the allow-list are
// dropped silently; duplicates collapse to one.
func (b *Builder) Build(id Identity, req Request) (*Principal, error) {
	if req.ClientID == "" {
		return nil, ErrMissingPresenter
	}
	if id.ID == "" {
		return nil, ErrMissingSubject
	}

	claims := []Claim{{
		Type:         ClaimSubject,
		Value:        id.ID,
		Destinations: []Destination{DestinationAccessToken},
	}}
	if id.Name != "" {
		claims = append(claims, Claim{Type: ClaimName, Value: id.Name, Destinations: bothTokens})
	}
	if id.Email != "" {
		claims = append(claims, Claim{Type: ClaimEmail, Value: id.Email, Destinations: bothTokens})
	}
	for _, role := range id.Roles {
		claims = append(claims, Claim{Type: ClaimRole, Value: role, Destinations: bothTokens})
	}

	scopes := []string{}
	for _, s := range req.Scopes {
		if slices.Contains(b.allowed, s) && !slices.Contains(scopes, s) {
			scopes = append(scopes, s)
		}
	}

	return &Principal{
		Subject:   id.ID,
		Claims:    claims,
		Scopes:    scopes,
		Audiences: slices.Clone(b.audiences),
		Presenter: req.ClientID,
		AuthTime:  req.AuthTime,
	}, nil
}
