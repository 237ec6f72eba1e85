package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Standard OpenID Connect scopes. They are always accepted at the authorize
// endpoint whether or not a Scope row exists for them.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
	ScopeRoles         = "roles"
	ScopeOfflineAccess = "offline_access"
)

// IsStandardScope reports whether name is one of the built-in OIDC scopes.
func IsStandardScope(name string) bool {
	switch name {
	case ScopeOpenID, ScopeProfile, ScopeEmail, ScopeRoles, ScopeOfflineAccess:
		return true
	}
	return false
}

// Scope is static reference data: a named permission and the audiences it unlocks.
type Scope struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)"`
	Name        string      `gorm:"uniqueIndex;not null;type:varchar(200)"`
	DisplayName string
	Description string      `gorm:"type:text"`
	Resources   StringArray `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Scope) TableName() string {
	return "scopes"
}

// BeforeCreate assigns an ID when the caller left it empty.
func (s *Scope) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
