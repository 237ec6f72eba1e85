package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TokenType identifies what a persisted token row represents.
type TokenType string

const (
	TokenTypeAuthorizationCode TokenType = "authorization_code"
	TokenTypeAccessToken       TokenType = "access_token"
	TokenTypeRefreshToken      TokenType = "refresh_token"
	TokenTypeReferenceToken    TokenType = "reference_token"
	TokenTypeDeviceCode        TokenType = "device_code"
	TokenTypeUserCode          TokenType = "user_code"
)

// IsOneTimeUse reports whether tokens of this type may be redeemed only once.
func (t TokenType) IsOneTimeUse() bool {
	switch t {
	case TokenTypeAuthorizationCode, TokenTypeDeviceCode, TokenTypeUserCode:
		return true
	}
	return false
}

// TokenStatus is the lifecycle state of a token row.
type TokenStatus string

const (
	TokenStatusValid    TokenStatus = "valid"
	TokenStatusRevoked  TokenStatus = "revoked"
	TokenStatusInactive TokenStatus = "inactive"
	TokenStatusRedeemed TokenStatus = "redeemed"
	TokenStatusRejected TokenStatus = "rejected"
)

var tokenTransitions = map[TokenStatus][]TokenStatus{
	TokenStatusValid: {
		TokenStatusRedeemed,
		TokenStatusRevoked,
		TokenStatusInactive,
		TokenStatusRejected,
	},
	TokenStatusInactive: {TokenStatusValid, TokenStatusRevoked},
	TokenStatusRedeemed: {TokenStatusRevoked},
	TokenStatusRevoked:  nil,
	TokenStatusRejected: nil,
}

// CanTransitionTo reports whether s may move to next.
func (s TokenStatus) CanTransitionTo(next TokenStatus) bool {
	for _, allowed := range tokenTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s TokenStatus) Valid() bool {
	_, ok := tokenTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s TokenStatus) IsTerminal() bool {
	return s.Valid() && len(tokenTransitions[s]) == 0
}

// TokenPayload is the metadata recorded with a token at issuance.
type TokenPayload struct {
	RedirectURI         string    `json:"redirect_uri,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	Nonce               string    `json:"nonce,omitempty"`
	Scopes              []string  `json:"scopes,omitempty"`
	Audiences           []string  `json:"audiences,omitempty"`
	Presenter           string    `json:"presenter,omitempty"`
	AuthTime            time.Time `json:"auth_time,omitzero"`
}

// Token is a persisted authorization code, access token or refresh token.
type Token struct {
	ID              string      `gorm:"primaryKey;type:varchar(36)"`
	ApplicationID   string      `gorm:"type:varchar(36);not null;index"`
	AuthorizationID *string     `gorm:"type:varchar(36);index"`
	Type            TokenType   `gorm:"type:varchar(30);not null;index"`
	Status          TokenStatus `gorm:"type:varchar(20);not null;index"`
	Subject         string      `gorm:"type:varchar(200);index"`
	ReferenceID     string      `gorm:"type:varchar(100);uniqueIndex;not null"`
	Payload         datatypes.JSONType[TokenPayload]
	CreationDate    time.Time `gorm:"not null;index"`
	ExpirationDate  time.Time `gorm:"not null;index"`
	RedemptionDate  *time.Time
}

func (Token) TableName() string {
	return "tokens"
}

// BeforeCreate fills the permissive defaults: a missing status is valid and a
// missing type is authorization_code.
func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TokenStatusValid
	}
	if t.Type == "" {
		t.Type = TokenTypeAuthorizationCode
	}
	if t.CreationDate.IsZero() {
		t.CreationDate = time.Now()
	}
	return nil
}

// IsExpired checks the expiration date independently of Status. A zero
// expiration date counts as expired.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpirationDate)
}

// IsUsable reports whether the token is valid and unexpired at now.
func (t *Token) IsUsable(now time.Time) bool {
	return t.Status == TokenStatusValid && !t.IsExpired(now)
}

// Data returns the decoded payload.
func (t *Token) Data() TokenPayload {
	return t.Payload.Data()
}

// AuthorizationRef returns the bound authorization id or "".
func (t *Token) AuthorizationRef() string {
	if t.AuthorizationID == nil {
		return ""
	}
	return *t.AuthorizationID
}

// TransitionTo moves the token to next, rejecting illegal moves.
func (t *Token) TransitionTo(next TokenStatus, at time.Time) error {
	if t.Status == next {
		return nil
	}
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: token %s (%s) %s -> %s", ErrIllegalTransition, t.ID, t.Type, t.Status, next)
	}
	t.Status = next
	if next == TokenStatusRedeemed || next == TokenStatusRevoked {
		t.RedemptionDate = &at
	}
	return nil
}
