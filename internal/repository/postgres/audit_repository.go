package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/internal/service"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) List(ctx context.Context, q *service.AuditQuery) ([]*domain.AuditLog, int64, error) {
	db := r.db.WithContext(ctx).Model(&domain.AuditLog{})

	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}
	if q.CaseID != nil {
		db = db.Where("case_id = ?", *q.CaseID)
	}
	if q.Action != nil {
		db = db.Where("action = ?", *q.Action)
	}
	if q.From != nil {
		db = db.Where("occurred_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("occurred_at <= ?", *q.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	entries := []*domain.AuditLog{}
	err := db.Order("occurred_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
