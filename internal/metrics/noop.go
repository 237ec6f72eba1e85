package metrics

import (
	"time"

	"github.com/go-authgate/identity/internal/core"
)

// NoopMetrics is a no-operation implementation of core.Recorder used when
// metrics are disabled.
type NoopMetrics struct{}

var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthorizeRequest(result string) {}

func (n *NoopMetrics) RecordGrant(grantType, result string, duration time.Duration) {}
func (n *NoopMetrics) RecordTokenIssued(tokenType, grantType string)                {}
func (n *NoopMetrics) RecordTokenRevoked(tokenType, reason string)                  {}
func (n *NoopMetrics) RecordRedemptionConflict(tokenType string)                    {}
func (n *NoopMetrics) RecordRefreshTokenReuse()                                     {}
func (n *NoopMetrics) RecordTokenValidation(result string)                          {}

func (n *NoopMetrics) RecordLogin(success bool) {}
func (n *NoopMetrics) RecordLogout()            {}

func (n *NoopMetrics) RecordPrune(kind string, removed int64) {}

func (n *NoopMetrics) SetActiveTokensCount(tokenType string, count int) {}

func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
