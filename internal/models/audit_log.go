package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType names an audited event.
type EventType string

const (
	// Session events
	EventAuthenticationSuccess EventType = "AUTHENTICATION_SUCCESS"
	EventAuthenticationFailure EventType = "AUTHENTICATION_FAILURE"
	EventLogout                EventType = "LOGOUT"

	// Authorize endpoint
	EventAuthorizationCodeIssued EventType = "AUTHORIZATION_CODE_ISSUED"
	EventAuthorizeRejected       EventType = "AUTHORIZE_REJECTED"

	// Token endpoint
	EventAuthorizationCodeRedeemed EventType = "AUTHORIZATION_CODE_REDEEMED"
	EventAccessTokenIssued         EventType = "ACCESS_TOKEN_ISSUED"
	EventRefreshTokenRotated       EventType = "REFRESH_TOKEN_ROTATED" //nolint:gosec // event name, not a credential
	EventRefreshTokenReuse         EventType = "REFRESH_TOKEN_REUSE"   //nolint:gosec // event name, not a credential
	EventGrantRejected             EventType = "GRANT_REJECTED"

	// Lifecycle
	EventTokenRevoked         EventType = "TOKEN_REVOKED"
	EventAuthorizationRevoked EventType = "AUTHORIZATION_REVOKED"
	EventTokensPruned         EventType = "TOKENS_PRUNED"

	// Bootstrap
	EventApplicationSeeded EventType = "APPLICATION_SEEDED"
	EventScopeSeeded       EventType = "SCOPE_SEEDED"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType is the kind of entity an event touched.
type ResourceType string

const (
	ResourceUser          ResourceType = "USER"
	ResourceApplication   ResourceType = "APPLICATION"
	ResourceScope         ResourceType = "SCOPE"
	ResourceToken         ResourceType = "TOKEN"
	ResourceAuthorization ResourceType = "AUTHORIZATION"
)

// AuditDetails holds event-specific fields. Stored as a JSON column.
type AuditDetails = datatypes.JSONMap

// AuditLog is an immutable audit record.
type AuditLog struct {
	ID        string        `gorm:"primaryKey;type:varchar(36)"     json:"id"`
	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	ActorUserID   string `gorm:"type:varchar(36);index" json:"actor_user_id"`
	ActorUsername string `gorm:"type:varchar(100)"      json:"actor_username"`
	ActorIP       string `gorm:"type:varchar(45);index" json:"actor_ip"`

	ResourceType ResourceType `gorm:"type:varchar(50);index" json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(36);index" json:"resource_id"`
	ResourceName string       `gorm:"type:varchar(255)"      json:"resource_name"`

	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `json:"details"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
