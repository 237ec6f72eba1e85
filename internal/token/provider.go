package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-authgate/identity/internal/principal"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeBearer is the token_type returned to clients
const TokenTypeBearer = "Bearer"

// Values of the token_use claim
const (
	UseAccess   = "access"
	UseIdentity = "id"
)

// Provider signs and verifies HS256 JWTs for one issuer.
type Provider struct {
	issuer string
	secret []byte
}

// NewProvider creates a provider. issuer becomes the iss claim.
func NewProvider(issuer, secret string) *Provider {
	return &Provider{issuer: issuer, secret: []byte(secret)}
}

// Issuer returns the iss value stamped on every token.
func (p *Provider) Issuer() string {
	return p.issuer
}

func (p *Provider) sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

// copyClaims adds every claim routed to dest. Repeated claim types become arrays.
func copyClaims(claims jwt.MapClaims, pr *principal.Principal, dest principal.Destination) {
	grouped := map[string][]string{}
	var order []string
	for _, c := range pr.ClaimsFor(dest) {
		if c.Type == principal.ClaimSubject {
			continue
		}
		if _, seen := grouped[c.Type]; !seen {
			order = append(order, c.Type)
		}
		grouped[c.Type] = append(grouped[c.Type], c.Value)
	}
	for _, t := range order {
		if values := grouped[t]; len(values) == 1 && t != principal.ClaimRole {
			claims[t] = values[0]
		} else {
			claims[t] = values
		}
	}
}

// IssueAccessToken mints the access token for pr. tokenID becomes jti and is
// also the id of the persisted token row.
func (p *Provider) IssueAccessToken(
	pr *principal.Principal,
	tokenID string,
	issuedAt, expiresAt time.Time,
) (string, error) {
	claims := jwt.MapClaims{
		"iss":       p.issuer,
		"sub":       pr.Subject,
		"aud":       pr.Audiences,
		"exp":       expiresAt.Unix(),
		"iat":       issuedAt.Unix(),
		"nbf":       issuedAt.Unix(),
		"jti":       tokenID,
		"client_id": pr.Presenter,
		"scope":     strings.Join(pr.Scopes, " "),
		"token_use": UseAccess,
	}
	copyClaims(claims, pr, principal.DestinationAccessToken)
	return p.sign(claims)
}

// AccessClaims is the validated content of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	ClientID string   `json:"client_id"`
	Scope    string   `json:"scope"`
	TokenUse string   `json:"token_use"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"role,omitempty"`
}

// Scopes splits the scope claim.
func (c *AccessClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// ValidateAccessToken checks the signature, issuer, expiry and token_use.
// It does not consult the database.
func (p *Provider) ValidateAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenUse != UseAccess || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
