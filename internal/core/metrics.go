package core

import (
	"context"
	"time"

	"github.com/go-authgate/identity/internal/models"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authorize endpoint
	RecordAuthorizeRequest(result string)

	// Token endpoint
	RecordGrant(grantType, result string, duration time.Duration)
	RecordTokenIssued(tokenType, grantType string)
	RecordTokenRevoked(tokenType, reason string)
	RecordRedemptionConflict(tokenType string)
	RecordRefreshTokenReuse()
	RecordTokenValidation(result string)

	// Authentication
	RecordLogin(success bool)
	RecordLogout()

	// Maintenance
	RecordPrune(kind string, removed int64)

	// Gauge setters (periodic updates)
	SetActiveTokensCount(tokenType string, count int)

	RecordDatabaseQueryError(operation string)
}

// TokenCounter is the DB operation needed by the gauge collector.
type TokenCounter interface {
	CountActiveTokens(ctx context.Context, tokenType models.TokenType) (int64, error)
}
