package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-authgate/identity/internal/core"
	"github.com/go-authgate/identity/internal/models"
	"github.com/go-authgate/identity/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	auditBatchSize     = 100
	auditFlushInterval = time.Second
	auditWriteTimeout  = 5 * time.Second
)

// AuditEntry is the caller-supplied part of an audit record.
type AuditEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorUserID   string
	ActorUsername string
	ActorIP       string
	ResourceType  models.ResourceType
	ResourceID    string
	ResourceName  string
	Action        string
	Details       models.AuditDetails
	Success       bool
	ErrorMessage  string
}

// AuditService writes audit events in the background, batching inserts.
// A nil *AuditService is valid and discards everything.
type AuditService struct {
	store   core.AuditStore
	log     *zap.SugaredLogger
	enabled bool
	now     core.Clock

	logChan chan *models.AuditLog

	batchMu     sync.Mutex
	batchBuffer []*models.AuditLog

	wg         sync.WaitGroup
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

// NewAuditService starts the background writer when enabled is true.
func NewAuditService(
	s core.AuditStore,
	log *zap.SugaredLogger,
	enabled bool,
	bufferSize int,
) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	svc := &AuditService{
		store:       s,
		log:         log,
		enabled:     enabled,
		now:         core.SystemClock,
		logChan:     make(chan *models.AuditLog, bufferSize),
		batchBuffer: make([]*models.AuditLog, 0, auditBatchSize),
		shutdownCh:  make(chan struct{}),
	}

	if enabled {
		svc.wg.Add(1)
		go svc.worker()
		log.Infow("audit service started", "buffer_size", bufferSize)
	} else {
		log.Info("audit service is disabled")
	}
	return svc
}

func (s *AuditService) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-s.logChan:
			s.addToBatch(entry)
		case <-ticker.C:
			s.flush()
		case <-s.shutdownCh:
			// drain what is already queued, then write it out
			for {
				select {
				case entry := <-s.logChan:
					s.addToBatch(entry)
				default:
					s.flush()
					return
				}
			}
		}
	}
}

func (s *AuditService) addToBatch(entry *models.AuditLog) {
	s.batchMu.Lock()
	s.batchBuffer = append(s.batchBuffer, entry)
	full := len(s.batchBuffer) >= auditBatchSize
	s.batchMu.Unlock()

	if full {
		s.flush()
	}
}

func (s *AuditService) flush() {
	s.batchMu.Lock()
	if len(s.batchBuffer) == 0 {
		s.batchMu.Unlock()
		return
	}
	toWrite := make([]*models.AuditLog, len(s.batchBuffer))
	copy(toWrite, s.batchBuffer)
	s.batchBuffer = s.batchBuffer[:0]
	s.batchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := s.store.CreateAuditLogBatch(ctx, toWrite); err != nil {
		s.log.Errorw("failed to write audit log batch", "count", len(toWrite), "error", err)
	}
}

func (s *AuditService) build(ctx context.Context, entry AuditEntry) *models.AuditLog {
	if entry.ActorIP == "" {
		entry.ActorIP = util.GetIPFromContext(ctx)
	}
	if entry.ActorUsername == "" {
		entry.ActorUsername = util.GetUsernameFromContext(ctx)
	}
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}

	now := s.now()
	return &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		EventTime:     now,
		Severity:      entry.Severity,
		ActorUserID:   entry.ActorUserID,
		ActorUsername: entry.ActorUsername,
		ActorIP:       entry.ActorIP,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		ResourceName:  entry.ResourceName,
		Action:        entry.Action,
		Details:       maskSensitiveDetails(entry.Details),
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		CreatedAt:     now,
	}
}

// Log queues an event. When the buffer is full the event is dropped.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) {
	if s == nil || !s.enabled {
		return
	}

	select {
	case s.logChan <- s.build(ctx, entry):
	default:
		s.log.Warnw("audit log buffer full, dropping event",
			"event_type", entry.EventType,
			"action", entry.Action,
		)
	}
}

// LogSync writes an event immediately.
func (s *AuditService) LogSync(ctx context.Context, entry AuditEntry) error {
	if s == nil || !s.enabled {
		return nil
	}
	return s.store.CreateAuditLog(ctx, s.build(ctx, entry))
}

// CleanupOldLogs deletes events older than retention.
func (s *AuditService) CleanupOldLogs(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	return s.store.DeleteOldAuditLogs(ctx, s.now().Add(-retention))
}

// Shutdown flushes queued events and stops the writer.
func (s *AuditService) Shutdown(ctx context.Context) error {
	if s == nil || !s.enabled {
		return nil
	}

	s.closeOnce.Do(func() { close(s.shutdownCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("audit service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// maskSensitiveDetails redacts secrets and shortens identifiers.
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return nil
	}

	masked := make(models.AuditDetails, len(details))
	for key, value := range details {
		switch {
		case isPartialMaskField(key):
			if str, ok := value.(string); ok && len(str) > 12 {
				masked[key] = str[:8] + "..." + str[len(str)-4:]
				continue
			}
			masked[key] = value
		case isSensitiveField(key):
			masked[key] = "***REDACTED***"
		default:
			masked[key] = value
		}
	}
	return masked
}

var sensitiveFields = []string{
	"password",
	"secret",
	"code_verifier",
	"access_token",
	"refresh_token",
	"id_token",
	"code",
}

var partialMaskFields = []string{
	"token_id",
	"authorization_id",
}

func isSensitiveField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range sensitiveFields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}

func isPartialMaskField(key string) bool {
	key = strings.ToLower(key)
	for _, field := range partialMaskFields {
		if strings.Contains(key, field) {
			return true
		}
	}
	return false
}
