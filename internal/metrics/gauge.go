package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"

	"go.uber.org/zap"
)

// gaugeTokenTypes are the token types exported on oauth_tokens_active.
var gaugeTokenTypes = []struct {
	tokenType models.TokenType
	operation string
}{
	{models.TokenTypeAccessToken, "count_access_tokens"},
	{models.TokenTypeRefreshToken, "count_refresh_tokens"},
	{models.TokenTypeAuthorizationCode, "count_authorization_codes"},
}

// GaugeUpdater refreshes the active-token gauges from the database.
type GaugeUpdater struct {
	counts   *CacheWrapper
	recorder core.Recorder
	ttl      time.Duration
	errors   *errorLogger
}

// NewGaugeUpdater caches counts for ttl, which should match the update interval.
func NewGaugeUpdater(
	counts *CacheWrapper,
	recorder core.Recorder,
	ttl time.Duration,
	log *zap.SugaredLogger,
) *GaugeUpdater {
	return &GaugeUpdater{
		counts:   counts,
		recorder: recorder,
		ttl:      ttl,
		errors:   newErrorLogger(log, 5*time.Minute),
	}
}

// Update sets every gauge once. Failed counts leave the gauge untouched.
func (g *GaugeUpdater) Update(ctx context.Context) {
	for _, tt := range gaugeTokenTypes {
		count, err := g.counts.GetActiveTokensCount(ctx, tt.tokenType, g.ttl)
		if err != nil {
			g.recorder.RecordDatabaseQueryError(tt.operation)
			g.errors.logIfNeeded(tt.operation, err)
			continue
		}
		g.recorder.SetActiveTokensCount(string(tt.tokenType), int(count))
	}
}

// Run updates immediately and then every interval until ctx is done.
func (g *GaugeUpdater) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.Update(ctx)
	for {
		select {
		case <-ticker.C:
			g.Update(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// errorLogger logs each operation's failures at most once per window.
type errorLogger struct {
	mu              sync.Mutex
	log             *zap.SugaredLogger
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
	now             func() time.Time
}

func newErrorLogger(log *zap.SugaredLogger, window time.Duration) *errorLogger {
	return &errorLogger{
		log:             log,
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: window,
		now:             time.Now,
	}
}

// logIfNeeded reports whether the error was logged.
func (e *errorLogger) logIfNeeded(operation string, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if last, ok := e.lastErrorTimes[operation]; ok && now.Sub(last) < e.rateLimitWindow {
		return false
	}
	e.lastErrorTimes[operation] = now
	e.log.Warnw("gauge database query failed",
		"operation", operation,
		"error", err,
		"suppressed_for", e.rateLimitWindow,
	)
	return true
}
