package metrics

import (
	"strconv"
	"time"

	"github.com/go-authgate/identity/internal/core"

	"github.com/gin-gonic/gin"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// HTTPMetricsMiddleware creates a Gin middleware that records HTTP metrics.
// It is a pass-through for any recorder other than *Metrics.
func HTTPMetricsMiddleware(m core.Recorder) gin.HandlerFunc {
	metrics, ok := m.(*Metrics)
	if !ok {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid self-recording
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		method := c.Request.Method
		path := normalizePath(c.FullPath()) // route pattern keeps label cardinality bounded
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// normalizePath returns the route pattern, or "unknown" for unmatched routes
func normalizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}

func (m *Metrics) RecordAuthorizeRequest(result string) {
	m.AuthorizeRequestsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordGrant(grantType, result string, duration time.Duration) {
	m.GrantsTotal.WithLabelValues(grantType, result).Inc()
	m.GrantDuration.WithLabelValues(grantType).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenIssued(tokenType, grantType string) {
	m.TokensIssuedTotal.WithLabelValues(tokenType, grantType).Inc()
}

func (m *Metrics) RecordTokenRevoked(tokenType, reason string) {
	m.TokensRevokedTotal.WithLabelValues(tokenType, reason).Inc()
}

func (m *Metrics) RecordRedemptionConflict(tokenType string) {
	m.RedemptionConflictsTotal.WithLabelValues(tokenType).Inc()
}

func (m *Metrics) RecordRefreshTokenReuse() {
	m.RefreshTokenReuseTotal.Inc()
}

// RecordTokenValidation records token validation (valid, invalid, expired, error)
func (m *Metrics) RecordTokenValidation(result string) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLogin(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

func (m *Metrics) RecordPrune(kind string, removed int64) {
	m.PrunedRowsTotal.WithLabelValues(kind).Add(float64(removed))
}

// SetActiveTokensCount sets the current count of active tokens (for periodic updates)
func (m *Metrics) SetActiveTokensCount(tokenType string, count int) {
	m.TokensActive.WithLabelValues(tokenType).Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
