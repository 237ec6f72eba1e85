package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role codes
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           string      `gorm:"primaryKey;type:varchar(36)"`
	Username     string      `gorm:"uniqueIndex;not null"`
	Email        string      `gorm:"uniqueIndex;not null"`
	PasswordHash string      `gorm:"not null"`
	FullName     string      // shown as the name claim
	Roles        StringArray `gorm:"type:text"`
	IsActive     bool        `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns an ID when the caller left it empty.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// DisplayName returns the full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// HasRole reports whether the user holds role
func (u *User) HasRole(role string) bool {
	return u.Roles.Contains(role)
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
