package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careloop/priorauth/internal/domain/pacase"
)

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) Create(ctx context.Context, c *pacase.Case) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pacase.ErrCaseAlreadyExists
		}
		return err
	}
	return nil
}

func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*pacase.Case, error) {
	var c pacase.Case
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pacase.ErrCaseNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Claim performs the conditional update that makes claiming conflict-safe:
// the WHERE clause on status means only one of two concurrent claimers can
// match the row, the other sees zero rows affected.
func (r *CaseRepository) Claim(ctx context.Context, id uuid.UUID, actor pacase.Actor) (*pacase.Case, error) {
	var claimed pacase.Case

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&pacase.Case{}).
			Where("id = ? AND status = ? AND deleted_at IS NULL", id, pacase.StatusNew).
			Updates(map[string]any{
				"status":        pacase.StatusInProgress,
				"assigned_to":   actor.ID,
				"assignee_name": actor.Name,
				"assignee_role": actor.Role,
				"assigned_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish a missing case from a lost race.
			var exists int64
			if err := tx.Model(&pacase.Case{}).
				Where("id = ? AND deleted_at IS NULL", id).
				Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return pacase.ErrCaseNotFound
			}
			return pacase.ErrAlreadyClaimed
		}

		change := &pacase.StatusChange{
			CaseID:     id,
			FromStatus: pacase.StatusNew,
			ToStatus:   pacase.StatusInProgress,
			ActorID:    actor.ID,
			ActorName:  actor.Name,
			ActorRole:  actor.Role,
			Note:       "claimed by " + actor.Name,
		}
		if err := tx.Create(change).Error; err != nil {
			return fmt.Errorf("appending history entry: %w", err)
		}

		return tx.Where("id = ?", id).First(&claimed).Error
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// UpdateStatus writes the status change and its history entry atomically.
// The guard on the previous status turns a concurrent writer into an
// ErrStaleCase instead of a silently lost update.
func (r *CaseRepository) UpdateStatus(ctx context.Context, c *pacase.Case, change *pacase.StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&pacase.Case{}).
			Where("id = ? AND status = ?", c.ID, change.FromStatus).
			Select("Status", "PhysicianDecision", "Submission", "Appeal").
			Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pacase.ErrStaleCase
		}

		if err := tx.Create(change).Error; err != nil {
			return fmt.Errorf("appending history entry: %w", err)
		}
		return nil
	})
}

func (r *CaseRepository) ListHistory(ctx context.Context, caseID uuid.UUID) ([]*pacase.StatusChange, error) {
	changes := []*pacase.StatusChange{}
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC").
		Find(&changes).Error
	return changes, err
}

func (r *CaseRepository) AddNote(ctx context.Context, n *pacase.Note) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *CaseRepository) ListNotes(ctx context.Context, caseID uuid.UUID) ([]*pacase.Note, error) {
	notes := []*pacase.Note{}
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}

var caseSortColumns = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"patient_name": "patient_name",
	"status":       "status",
}

func (r *CaseRepository) List(ctx context.Context, q *pacase.ListCasesQuery) (*pacase.PagedCases, error) {
	db := r.db.WithContext(ctx).Model(&pacase.Case{}).Where("deleted_at IS NULL")

	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	if q.AssignedTo != nil {
		db = db.Where("assigned_to = ?", *q.AssignedTo)
	}
	if q.DirectorQueue {
		db = db.Where(
			"status = ? OR (status = ? AND physician_decision->>'decision' = ?)",
			pacase.StatusNeedsPhysician, pacase.StatusInProgress, pacase.DecisionEscalated,
		)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		db = db.Where("patient_name ILIKE ? OR mrn ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	sortCol, ok := caseSortColumns[q.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}

	cases := []*pacase.Case{}
	err := db.Order(sortCol + " " + order).
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&cases).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &pacase.PagedCases{
		Cases:      cases,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *CaseRepository) ExistsByMRN(ctx context.Context, mrn string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&pacase.Case{}).
		Where("mrn = ? AND deleted_at IS NULL", mrn).
		Count(&count).Error
	return count > 0, err
}
