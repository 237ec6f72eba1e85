package store

import (
	"context"
	"time"

	"github.com/go-authgate/identity/internal/models"
)

// Audit log operations

func (s *Store) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}

// CreateAuditLogBatch inserts logs in chunks of 100.
func (s *Store) CreateAuditLogBatch(ctx context.Context, logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// DeleteOldAuditLogs removes entries older than cutoff and reports how many.
func (s *Store) DeleteOldAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

// ListAuditLogs returns the newest entries of one event type, or of every
// type when eventType is empty.
func (s *Store) ListAuditLogs(
	ctx context.Context,
	eventType models.EventType,
	limit int,
) ([]models.AuditLog, error) {
	query := s.db.WithContext(ctx).Order("event_time DESC").Limit(limit)
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	logs := []models.AuditLog{}
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
