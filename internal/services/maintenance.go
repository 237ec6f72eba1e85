package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/store"

	"go.uber.org/zap"
)

// ErrAuthorizationNotFound is returned when revoking an unknown grant.
var ErrAuthorizationNotFound = errors.New("authorization not found")

// PruneResult reports how many rows a prune pass removed.
type PruneResult struct {
	Tokens         int64
	Authorizations int64
}

// MaintenanceService prunes dead rows and revokes grants. Pruning only
// touches rows that can no longer authorize anything, so it runs alongside
// live traffic.
type MaintenanceService struct {
	apps           core.ApplicationStore
	authorizations core.AuthorizationStore
	tokens         core.TokenStore
	audit          *AuditService
	metrics        core.Recorder
	log            *zap.SugaredLogger
	retention      time.Duration
	now            core.Clock
}

func NewMaintenanceService(
	apps core.ApplicationStore,
	authorizations core.AuthorizationStore,
	tokens core.TokenStore,
	audit *AuditService,
	m core.Recorder,
	log *zap.SugaredLogger,
	retention time.Duration,
) *MaintenanceService {
	return &MaintenanceService{
		apps:           apps,
		authorizations: authorizations,
		tokens:         tokens,
		audit:          audit,
		metrics:        m,
		log:            log,
		retention:      retention,
		now:            core.SystemClock,
	}
}

// Prune removes tokens that expired or reached a final state before the
// retention window, then authorizations left without tokens. Tokens go first
// so their authorizations become eligible in the same pass.
func (s *MaintenanceService) Prune(ctx context.Context) (PruneResult, error) {
	var result PruneResult
	threshold := s.now().Add(-s.retention)

	removed, err := s.tokens.PruneTokens(ctx, threshold)
	if err != nil {
		return result, fmt.Errorf("prune tokens: %w", err)
	}
	result.Tokens = removed
	s.metrics.RecordPrune("tokens", removed)

	removed, err = s.authorizations.PruneAuthorizations(ctx, threshold)
	if err != nil {
		return result, fmt.Errorf("prune authorizations: %w", err)
	}
	result.Authorizations = removed
	s.metrics.RecordPrune("authorizations", removed)

	if result.Tokens > 0 || result.Authorizations > 0 {
		s.log.Infow("pruned expired grants",
			"tokens", result.Tokens,
			"authorizations", result.Authorizations,
			"threshold", threshold,
		)
		s.audit.Log(ctx, AuditEntry{
			EventType: models.EventTokensPruned,
			Severity:  models.SeverityInfo,
			Action:    "Expired tokens and authorizations pruned",
			Details: models.AuditDetails{
				"tokens":         result.Tokens,
				"authorizations": result.Authorizations,
			},
			Success: true,
		})
	}
	return result, nil
}

// RevokeAuthorization revokes the grant and every unredeemed token bound to it.
func (s *MaintenanceService) RevokeAuthorization(ctx context.Context, id, reason string) error {
	if err := s.authorizations.RevokeAuthorization(ctx, id, s.now()); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrAuthorizationNotFound
		}
		return fmt.Errorf("revoke authorization: %w", err)
	}

	s.metrics.RecordTokenRevoked("authorization", reason)
	s.audit.Log(ctx, AuditEntry{
		EventType:    models.EventAuthorizationRevoked,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuthorization,
		ResourceID:   id,
		Action:       "Authorization revoked",
		Details:      models.AuditDetails{"reason": reason},
		Success:      true,
	})
	return nil
}

// RevokeUserGrants revokes every authorization subject holds for clientID.
// It returns the number of grants that were still valid.
func (s *MaintenanceService) RevokeUserGrants(ctx context.Context, subject, clientID, reason string) (int, error) {
	app, err := s.apps.FindApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return 0, ErrInvalidClient
		}
		return 0, fmt.Errorf("load client: %w", err)
	}

	auths, err := s.authorizations.FindAuthorizations(ctx, subject, app.ID)
	if err != nil {
		return 0, fmt.Errorf("list authorizations: %w", err)
	}

	revoked := 0
	for _, a := range auths {
		if !a.IsValid() {
			continue
		}
		if err := s.RevokeAuthorization(ctx, a.ID, reason); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}
