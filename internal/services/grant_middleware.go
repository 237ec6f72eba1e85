package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"

	"go.uber.org/zap"
)

// GrantMiddleware wraps a GrantHandler.
type GrantMiddleware func(GrantHandler) GrantHandler

// Chain wraps h so that mws[0] is the outermost layer.
func Chain(h GrantHandler, mws ...GrantMiddleware) GrantHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// grantResult is the label used in logs and metrics for a grant outcome.
func grantResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidClient):
		return "invalid_client"
	case errors.Is(err, ErrInvalidScope):
		return "invalid_scope"
	case errors.Is(err, ErrUnauthorizedClient):
		return "unauthorized_client"
	default:
		return "error"
	}
}

// WithForbiddenMapping replaces detailed forbidden errors with the bare
// ErrForbidden after logging the reason. It must be the outermost layer.
func WithForbiddenMapping(log *zap.SugaredLogger) GrantMiddleware {
	return func(next GrantHandler) GrantHandler {
		return GrantHandlerFunc(func(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
			resp, err := next.Handle(ctx, req)
			if reason, ok := ForbiddenReason(err); ok {
				log.Infow("grant forbidden",
					"grant_type", req.GrantType,
					"client_id", req.ClientID,
					"reason", reason,
				)
				return nil, ErrForbidden
			}
			return resp, err
		})
	}
}

// WithLogging logs every failed grant at a level matching its class.
func WithLogging(log *zap.SugaredLogger) GrantMiddleware {
	return func(next GrantHandler) GrantHandler {
		return GrantHandlerFunc(func(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
			resp, err := next.Handle(ctx, req)
			switch result := grantResult(err); result {
			case "success", "forbidden":
			case "error":
				log.Errorw("grant failed",
					"grant_type", req.GrantType,
					"client_id", req.ClientID,
					"error", err,
				)
			default:
				log.Debugw("grant rejected",
					"grant_type", req.GrantType,
					"client_id", req.ClientID,
					"result", result,
				)
			}
			return resp, err
		})
	}
}

// WithMetrics records the outcome and latency of each grant.
func WithMetrics(m core.Recorder) GrantMiddleware {
	return func(next GrantHandler) GrantHandler {
		return GrantHandlerFunc(func(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			m.RecordGrant(req.GrantType, grantResult(err), time.Since(start))
			return resp, err
		})
	}
}

// WithAudit records rejected grants. Successful grants are audited by the
// handlers, which know the subject.
func WithAudit(a *AuditService) GrantMiddleware {
	return func(next GrantHandler) GrantHandler {
		return GrantHandlerFunc(func(ctx context.Context, req *GrantRequest) (*TokenResponse, error) {
			resp, err := next.Handle(ctx, req)
			if err != nil {
				entry := AuditEntry{
					EventType:    models.EventGrantRejected,
					Severity:     models.SeverityWarning,
					ResourceType: models.ResourceApplication,
					ResourceName: req.ClientID,
					Action:       "Token request rejected",
					Details: models.AuditDetails{
						"grant_type": req.GrantType,
						"result":     grantResult(err),
					},
					Success:      false,
					ErrorMessage: err.Error(),
				}
				if reason, ok := ForbiddenReason(err); ok {
					entry.Details["reason"] = reason
				}
				a.Log(ctx, entry)
			}
			return resp, err
		})
	}
}
