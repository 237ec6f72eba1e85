package token

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/go-authgate/identity/internal/principal"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IdentityParams carries the per-request values of an OIDC ID token.
type IdentityParams struct {
	Nonce       string
	AccessToken string // used for at_hash
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// IssueIdentityToken mints an ID token for pr. Only claims routed to the
// identity token are copied. The audience is the presenter. ID tokens are
// not persisted.
func (p *Provider) IssueIdentityToken(pr *principal.Principal, params IdentityParams) (string, error) {
	claims := jwt.MapClaims{
		"iss":       p.issuer,
		"sub":       pr.Subject,
		"aud":       pr.Presenter,
		"azp":       pr.Presenter,
		"exp":       params.ExpiresAt.Unix(),
		"iat":       params.IssuedAt.Unix(),
		"jti":       uuid.New().String(),
		"token_use": UseIdentity,
	}
	if !pr.AuthTime.IsZero() {
		claims["auth_time"] = pr.AuthTime.Unix()
	}
	if params.Nonce != "" {
		claims["nonce"] = params.Nonce
	}
	if params.AccessToken != "" {
		claims["at_hash"] = ComputeAtHash(params.AccessToken)
	}
	copyClaims(claims, pr, principal.DestinationIdentityToken)
	return p.sign(claims)
}

// ComputeAtHash computes the at_hash claim value per OIDC Core 1.0 §3.3.2.11.
// at_hash = base64url( left-most 128 bits of SHA-256( ASCII(access_token) ) )
func ComputeAtHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
