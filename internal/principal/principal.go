// Package principal assembles the claims identity that tokens are minted
// from. A Principal carries the subject, its claims with per-claim
// destinations, the granted scopes, the audiences and the presenter (the
// client the tokens are bound to).
package principal

import (
	"errors"
	"slices"
	"time"

	"github.com/go-authgate/identity/internal/models"
)

var (
	// ErrMissingPresenter is returned when the request names no client.
	// Tokens without a presenter could be redeemed by any client.
	ErrMissingPresenter = errors.New("principal: presenter (client id) is required")

	// ErrMissingSubject is returned when the identity has no id.
	ErrMissingSubject = errors.New("principal: subject is required")
)

// Destination names a token a claim may be copied into.
type Destination string

const (
	DestinationAccessToken   Destination = "access_token"
	DestinationIdentityToken Destination = "id_token"
)

// Claim types emitted by the builder
const (
	ClaimSubject = "sub"
	ClaimName    = "name"
	ClaimEmail   = "email"
	ClaimRole    = "role"
)

// Claim is a single typed value plus the tokens it may appear in.
type Claim struct {
	Type         string
	Value        string
	Destinations []Destination
}

// HasDestination reports whether the claim is routed to d.
func (c Claim) HasDestination(d Destination) bool {
	return slices.Contains(c.Destinations, d)
}

// Principal is the authenticated identity a grant issues tokens for.
type Principal struct {
	Subject   string
	Claims    []Claim
	Scopes    []string
	Audiences []string
	Presenter string
	AuthTime  time.Time
}

// ClaimsFor returns the claims routed to d, in insertion order.
func (p *Principal) ClaimsFor(d Destination) []Claim {
	var out []Claim
	for _, c := range p.Claims {
		if c.HasDestination(d) {
			out = append(out, c)
		}
	}
	return out
}

// HasScope reports whether scope was granted.
func (p *Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// FirstClaim returns the first value of claimType or "".
func (p *Principal) FirstClaim(claimType string) string {
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}

// Values returns every value of claimType.
func (p *Principal) Values(claimType string) []string {
	var out []string
	for _, c := range p.Claims {
		if c.Type == claimType {
			out = append(out, c.Value)
		}
	}
	return out
}

// Identity is the application user a principal is built for.
type Identity struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

// IdentityFromUser copies the fields the builder reads from a stored user.
func IdentityFromUser(u *models.User) Identity {
	return Identity{
		ID:    u.ID,
		Name:  u.DisplayName(),
		Email: u.Email,
		Roles: slices.Clone(u.Roles),
	}
}

// Request is the part of the protocol request the builder needs.
type Request struct {
	ClientID string
	Scopes   []string
	AuthTime time.Time
}
