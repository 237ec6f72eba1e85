package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrIllegalTransition is returned when a status change is not permitted by
// the entity's state machine.
var ErrIllegalTransition = errors.New("illegal status transition")

// AuthorizationStatus is the lifecycle state of a grant.
type AuthorizationStatus string

const (
	AuthorizationStatusValid   AuthorizationStatus = "valid"
	AuthorizationStatusRevoked AuthorizationStatus = "revoked"
)

// authorizationTransitions lists the legal successor states. Revocation is final.
var authorizationTransitions = map[AuthorizationStatus][]AuthorizationStatus{
	AuthorizationStatusValid:   {AuthorizationStatusRevoked},
	AuthorizationStatusRevoked: nil,
}

// CanTransitionTo reports whether s may move to next.
func (s AuthorizationStatus) CanTransitionTo(next AuthorizationStatus) bool {
	for _, allowed := range authorizationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s AuthorizationStatus) Valid() bool {
	_, ok := authorizationTransitions[s]
	return ok
}

// AuthorizationType separates single-exchange grants from grants backing refresh tokens.
type AuthorizationType string

const (
	AuthorizationTypeAdHoc     AuthorizationType = "ad-hoc"
	AuthorizationTypePermanent AuthorizationType = "permanent"
)

// Authorization is the consent record binding a subject to a client and a scope set.
type Authorization struct {
	ID            string              `gorm:"primaryKey;type:varchar(36)"`
	ApplicationID string              `gorm:"type:varchar(36);not null;index"`
	Subject       string              `gorm:"type:varchar(200);not null;index"`
	Status        AuthorizationStatus `gorm:"type:varchar(20);not null;index"`
	Type          AuthorizationType   `gorm:"type:varchar(20);not null"`
	Scopes        StringArray         `gorm:"type:text"`
	Properties    datatypes.JSONMap
	CreationDate  time.Time `gorm:"not null;index"`

	Application *Application `gorm:"foreignKey:ApplicationID"`
}

func (Authorization) TableName() string {
	return "authorizations"
}

// BeforeCreate fills the permissive defaults: a missing status is valid and a
// missing type is ad-hoc.
func (a *Authorization) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = AuthorizationStatusValid
	}
	if a.Type == "" {
		a.Type = AuthorizationTypeAdHoc
	}
	if a.CreationDate.IsZero() {
		a.CreationDate = time.Now()
	}
	return nil
}

// IsValid reports whether the grant can still back tokens.
func (a *Authorization) IsValid() bool {
	return a.Status == AuthorizationStatusValid
}

// TransitionTo moves the authorization to next, rejecting illegal moves.
func (a *Authorization) TransitionTo(next AuthorizationStatus) error {
	if a.Status == next {
		return nil
	}
	if !a.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: authorization %s %s -> %s", ErrIllegalTransition, a.ID, a.Status, next)
	}
	a.Status = next
	return nil
}
