package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/pkg/metrics"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, q *AuditQuery) ([]*domain.AuditLog, int64, error)
}

// AuditQuery filters the append-only log. All fields optional.
type AuditQuery struct {
	UserID   *uuid.UUID
	CaseID   *uuid.UUID
	Action   *domain.AuditAction
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// AuditEntry is the write-side shape services hand to LogAsync.
type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	CaseID       *uuid.UUID
	IPAddress    string
	RequestID    string
	StatusCode   int
	Changes      string
}

type AuditService struct {
	repo    AuditRepository
	log     *zap.Logger
	metrics *metrics.Collector
	entries chan *domain.AuditLog
	done    chan struct{}
}

const auditBufferSize = 10_000

// NewAuditService starts the background persistence worker. m may be nil,
// in which case counter updates are skipped.
func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	svc := &AuditService{
		repo:    repo,
		log:     log,
		metrics: m,
		entries: make(chan *domain.AuditLog, auditBufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full, the entry is dropped and a warning is emitted.
func (s *AuditService) LogAsync(ctx context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.UserID,
		UserRole:     entry.UserRole,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		CaseID:       entry.CaseID,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		StatusCode:   entry.StatusCode,
		Changes:      entry.Changes,
	}

	select {
	case s.entries <- al:
	default:
		if s.metrics != nil {
			s.metrics.AuditBufferDropped.Inc()
		}
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
	}
}

// List serves the audit dashboard. Read access is restricted to auditors and
// admins at the handler layer; case managers and physicians may read the
// trail of cases through the per-case endpoint.
func (s *AuditService) List(ctx context.Context, q *AuditQuery) ([]*domain.AuditLog, int64, error) {
	if q.PageSize <= 0 || q.PageSize > 200 {
		q.PageSize = 50
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

func (s *AuditService) Shutdown() {
	close(s.entries)
	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.AuditEntriesTotal.Inc()
		}
		cancel()
	}
}
