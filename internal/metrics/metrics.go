package metrics

import (
	"sync"

	"github.com/go-authgate/identity/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authorize endpoint
	AuthorizeRequestsTotal *prometheus.CounterVec

	// Token endpoint
	GrantsTotal              *prometheus.CounterVec
	GrantDuration            *prometheus.HistogramVec
	TokensIssuedTotal        *prometheus.CounterVec
	TokensRevokedTotal       *prometheus.CounterVec
	RedemptionConflictsTotal *prometheus.CounterVec
	RefreshTokenReuseTotal   prometheus.Counter
	TokenValidationTotal     *prometheus.CounterVec
	TokensActive             *prometheus.GaugeVec

	// Authentication
	AuthLoginTotal  *prometheus.CounterVec
	AuthLogoutTotal prometheus.Counter

	// Maintenance
	PrunedRowsTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns the process-wide Prometheus recorder when enabled and a
// NoopMetrics otherwise. The collectors are registered once.
func Init(enabled bool) core.Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthorizeRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorize_requests_total",
				Help: "Total number of authorize endpoint requests",
			},
			[]string{"result"}, // success, login_required, rejected
		),

		GrantsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_grants_total",
				Help: "Total number of token endpoint grants by outcome",
			},
			[]string{"grant_type", "result"},
		),
		GrantDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oauth_grant_duration_seconds",
				Help:    "Time taken to validate a grant and issue tokens",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"grant_type"},
		),
		TokensIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"token_type", "grant_type"},
		),
		TokensRevokedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of tokens revoked",
			},
			[]string{"token_type", "reason"},
		),
		RedemptionConflictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_redemption_conflicts_total",
				Help: "Total number of one-time tokens redeemed concurrently by another request",
			},
			[]string{"token_type"},
		),
		RefreshTokenReuseTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_refresh_token_reuse_total",
				Help: "Total number of rotated refresh tokens presented again",
			},
		),
		TokenValidationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of access token validations",
			},
			[]string{"result"}, // valid, invalid, expired, error
		),
		TokensActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oauth_tokens_active",
				Help: "Current number of valid, unexpired tokens",
			},
			[]string{"token_type"},
		),

		AuthLoginTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, failure
		),
		AuthLogoutTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),

		PrunedRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_pruned_rows_total",
				Help: "Total number of expired rows removed by pruning",
			},
			[]string{"kind"}, // tokens, authorizations
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),

		DatabaseQueryErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"}, // count_access_tokens, count_refresh_tokens
		),
	}
}
