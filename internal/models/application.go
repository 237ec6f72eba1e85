package models

import (
	"encoding/base32"
	"strings"
	"time"

	"github.com/go-authgate/identity/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ClientType distinguishes clients that can keep a secret from those that cannot.
type ClientType string

const (
	ClientTypePublic       ClientType = "public"
	ClientTypeConfidential ClientType = "confidential"
)

// ConsentType governs whether the consent screen is shown.
type ConsentType string

const (
	ConsentTypeImplicit   ConsentType = "implicit"
	ConsentTypeExplicit   ConsentType = "explicit"
	ConsentTypeExternal   ConsentType = "external"
	ConsentTypeSystematic ConsentType = "systematic"
)

// Permission prefixes and well-known values
const (
	PermissionEndpointAuthorization = "ept:authorization"
	PermissionEndpointToken         = "ept:token"
	PermissionEndpointRevocation    = "ept:revocation"
	PermissionEndpointLogout        = "ept:logout"

	PermissionGrantAuthorizationCode = "gt:authorization_code"
	PermissionGrantRefreshToken      = "gt:refresh_token"

	PermissionResponseTypeCode = "rst:code"

	PermissionScopePrefix = "scp:"

	RequirementPKCE = "ft:pkce"
)

// lowercase base32 without padding, used for client secrets
var base32Lower = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").
	WithPadding(base32.NoPadding)

// Application is a registered OAuth client.
type Application struct {
	ID                     string      `gorm:"primaryKey;type:varchar(36)"`
	ClientID               string      `gorm:"uniqueIndex;not null;type:varchar(100)"`
	ClientSecret           string      // bcrypt hash, empty for public clients
	DisplayName            string      `gorm:"not null"`
	ClientType             ClientType  `gorm:"type:varchar(20);not null;default:'public'"`
	ConsentType            ConsentType `gorm:"type:varchar(20);not null;default:'implicit'"`
	RedirectURIs           StringArray `gorm:"type:text"`
	PostLogoutRedirectURIs StringArray `gorm:"type:text"`
	Permissions            StringArray `gorm:"type:text"`
	Requirements           StringArray `gorm:"type:text"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TableName overrides the table name used by Application to `applications`
func (Application) TableName() string {
	return "applications"
}

// BeforeCreate assigns an ID when the caller left it empty.
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.ClientType == "" {
		a.ClientType = ClientTypePublic
	}
	if a.ConsentType == "" {
		a.ConsentType = ConsentTypeImplicit
	}
	return nil
}

// IsPublic reports whether the client is unable to hold a secret.
func (a *Application) IsPublic() bool {
	return a.ClientType != ClientTypeConfidential
}

// HasRedirectURI performs an exact string match against the registered set.
func (a *Application) HasRedirectURI(uri string) bool {
	return uri != "" && a.RedirectURIs.Contains(uri)
}

// HasPostLogoutRedirectURI performs an exact string match against the registered set.
func (a *Application) HasPostLogoutRedirectURI(uri string) bool {
	return uri != "" && a.PostLogoutRedirectURIs.Contains(uri)
}

// HasPermission reports whether the client holds the given permission.
func (a *Application) HasPermission(permission string) bool {
	return a.Permissions.Contains(permission)
}

// HasScopePermission reports whether the client may request the named scope.
func (a *Application) HasScopePermission(scope string) bool {
	return a.HasPermission(PermissionScopePrefix + scope)
}

// RequiresPKCE is true for public clients and for clients carrying the PKCE requirement.
func (a *Application) RequiresPKCE() bool {
	return a.IsPublic() || a.Requirements.Contains(RequirementPKCE)
}

// ScopePermissions returns the scope names the client may request.
func (a *Application) ScopePermissions() []string {
	var scopes []string
	for _, p := range a.Permissions {
		if name, ok := strings.CutPrefix(p, PermissionScopePrefix); ok {
			scopes = append(scopes, name)
		}
	}
	return scopes
}

// GenerateClientSecret stores the bcrypt hash of a new secret and returns the plaintext.
func (a *Application) GenerateClientSecret() (string, error) {
	raw, err := util.CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	secret := "idp_" + base32Lower.EncodeToString(raw)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	a.ClientSecret = string(hashed)
	return secret, nil
}

// ValidateClientSecret compares the given secret with the stored hash
func (a *Application) ValidateClientSecret(secret string) bool {
	if a.ClientSecret == "" || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.ClientSecret), []byte(secret)) == nil
}
