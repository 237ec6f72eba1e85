package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-authgate/identity/internal/logging"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSensitiveDetails(t *testing.T) {
	details := models.AuditDetails{
		"client_id":        "spa-client",
		"client_secret":    "idp_abcdef",
		"code_verifier":    "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
		"refresh_token":    "opaque",
		"authorization_id": "8f14e45f-ceea-467f-a0e6-7e6e3a1c2b3d",
		"token_id":         "short",
		"scope":            "openid",
	}

	masked := maskSensitiveDetails(details)

	assert.Equal(t, "spa-client", masked["client_id"])
	assert.Equal(t, "***REDACTED***", masked["client_secret"])
	assert.Equal(t, "***REDACTED***", masked["code_verifier"])
	assert.Equal(t, "***REDACTED***", masked["refresh_token"])
	assert.Equal(t, "8f14e45f...2b3d", masked["authorization_id"])
	assert.Equal(t, "short", masked["token_id"])
	assert.Equal(t, "openid", masked["scope"])

	assert.Equal(t, "idp_abcdef", details["client_secret"], "the input is not modified")
	assert.Nil(t, maskSensitiveDetails(nil))
}

func TestAuditService_Nil(t *testing.T) {
	var svc *AuditService
	ctx := context.Background()

	svc.Log(ctx, AuditEntry{EventType: models.EventLogout})
	require.NoError(t, svc.LogSync(ctx, AuditEntry{EventType: models.EventLogout}))
	n, err := svc.CleanupOldLogs(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, svc.Shutdown(ctx))
}

func TestAuditService_FlushOnShutdown(t *testing.T) {
	ctx := util.SetIPContext(context.Background(), "203.0.113.7")
	s := newTestStore(t)
	svc := NewAuditService(s, logging.Nop(), true, 16)

	for range 5 {
		svc.Log(ctx, AuditEntry{
			EventType: models.EventAuthenticationFailure,
			Severity:  models.SeverityWarning,
			Action:    "Login failed",
			Details:   models.AuditDetails{"password": "hunter2"},
		})
	}
	svc.Log(ctx, AuditEntry{EventType: models.EventLogout, Action: "Logout", Success: true})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(shutdownCtx))
	require.NoError(t, svc.Shutdown(shutdownCtx), "shutdown is idempotent")

	failures, err := s.ListAuditLogs(context.Background(), models.EventAuthenticationFailure, 10)
	require.NoError(t, err)
	require.Len(t, failures, 5)
	assert.Equal(t, "203.0.113.7", failures[0].ActorIP)
	assert.Equal(t, "***REDACTED***", failures[0].Details["password"])

	logouts, err := s.ListAuditLogs(context.Background(), models.EventLogout, 10)
	require.NoError(t, err)
	require.Len(t, logouts, 1)
	assert.Equal(t, models.SeverityInfo, logouts[0].Severity, "severity defaults to info")
}

func TestAuditService_LogSyncAndCleanup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := NewAuditService(s, logging.Nop(), true, 0)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	old := time.Now().Add(-48 * time.Hour)
	svc.now = func() time.Time { return old }
	require.NoError(t, svc.LogSync(ctx, AuditEntry{EventType: models.EventTokensPruned, Action: "old"}))

	svc.now = time.Now
	require.NoError(t, svc.LogSync(ctx, AuditEntry{EventType: models.EventTokensPruned, Action: "new"}))

	n, err := svc.CleanupOldLogs(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.ListAuditLogs(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Action)
}

func TestAuditService_Disabled(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := NewAuditService(s, logging.Nop(), false, 10)

	svc.Log(ctx, AuditEntry{EventType: models.EventLogout})
	require.NoError(t, svc.LogSync(ctx, AuditEntry{EventType: models.EventLogout}))
	require.NoError(t, svc.Shutdown(ctx))

	logs, err := s.ListAuditLogs(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
