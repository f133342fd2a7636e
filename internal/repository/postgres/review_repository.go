package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careloop/priorauth/internal/domain/review"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) CreateBundle(ctx context.Context, caseID uuid.UUID, rv *review.CaseReview) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range rv.Rules {
			item.CaseID = caseID
		}
		for _, item := range rv.Gaps {
			item.CaseID = caseID
		}
		for _, item := range rv.Risks {
			item.CaseID = caseID
		}
		for _, item := range rv.Recommendations {
			item.CaseID = caseID
		}

		if len(rv.Rules) > 0 {
			if err := tx.Create(rv.Rules).Error; err != nil {
				return err
			}
		}
		if len(rv.Gaps) > 0 {
			if err := tx.Create(rv.Gaps).Error; err != nil {
				return err
			}
		}
		if len(rv.Risks) > 0 {
			if err := tx.Create(rv.Risks).Error; err != nil {
				return err
			}
		}
		if len(rv.Recommendations) > 0 {
			if err := tx.Create(rv.Recommendations).Error; err != nil {
				return err
			}
		}
		if rv.Analysis != nil {
			rv.Analysis.CaseID = caseID
			if err := tx.Create(rv.Analysis).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ReviewRepository) GetByCase(ctx context.Context, caseID uuid.UUID) (*review.CaseReview, error) {
	rv := &review.CaseReview{
		Rules:           []*review.PayerRule{},
		Gaps:            []*review.PolicyGap{},
		Risks:           []*review.RiskFactor{},
		Recommendations: []*review.Recommendation{},
	}

	db := r.db.WithContext(ctx)
	if err := db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&rv.Rules).Error; err != nil {
		return nil, err
	}
	if err := db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&rv.Gaps).Error; err != nil {
		return nil, err
	}
	if err := db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&rv.Risks).Error; err != nil {
		return nil, err
	}
	if err := db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&rv.Recommendations).Error; err != nil {
		return nil, err
	}

	var analysis review.Analysis
	err := db.Where("case_id = ?", caseID).First(&analysis).Error
	switch {
	case err == nil:
		rv.Analysis = &analysis
	case errors.Is(err, gorm.ErrRecordNotFound):
		// A case may predate analysis grading; readiness stays false.
	default:
		return nil, err
	}

	return rv, nil
}

func (r *ReviewRepository) UpdateRuleStatus(ctx context.Context, caseID, ruleID uuid.UUID, status review.RuleStatus, evidence string) (*review.PayerRule, error) {
	updates := map[string]any{"status": status}
	if evidence != "" {
		updates["evidence"] = evidence
	}

	res := r.db.WithContext(ctx).Model(&review.PayerRule{}).
		Where("id = ? AND case_id = ?", ruleID, caseID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, review.ErrItemNotFound
	}

	var rule review.PayerRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", ruleID).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ReviewRepository) UpdateRiskStatus(ctx context.Context, caseID, riskID uuid.UUID, status review.RiskStatus) (*review.RiskFactor, error) {
	res := r.db.WithContext(ctx).Model(&review.RiskFactor{}).
		Where("id = ? AND case_id = ?", riskID, caseID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, review.ErrItemNotFound
	}

	var risk review.RiskFactor
	if err := r.db.WithContext(ctx).First(&risk, "id = ?", riskID).Error; err != nil {
		return nil, err
	}
	return &risk, nil
}

func (r *ReviewRepository) UpdateGapStatus(ctx context.Context, caseID, gapID uuid.UUID, status review.GapStatus) (*review.PolicyGap, error) {
	res := r.db.WithContext(ctx).Model(&review.PolicyGap{}).
		Where("id = ? AND case_id = ?", gapID, caseID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, review.ErrItemNotFound
	}

	var gap review.PolicyGap
	if err := r.db.WithContext(ctx).First(&gap, "id = ?", gapID).Error; err != nil {
		return nil, err
	}
	return &gap, nil
}

func (r *ReviewRepository) UpdateRecommendationStatus(ctx context.Context, caseID, recID uuid.UUID, status review.RecommendationStatus) (*review.Recommendation, error) {
	res := r.db.WithContext(ctx).Model(&review.Recommendation{}).
		Where("id = ? AND case_id = ?", recID, caseID).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, review.ErrItemNotFound
	}

	var rec review.Recommendation
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", recID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ReviewRepository) UpdateAnalysis(ctx context.Context, caseID uuid.UUID, confidence review.ConfidenceLevel, score int, summary string, gradedBy uuid.UUID) (*review.Analysis, error) {
	updates := map[string]any{
		"confidence":        confidence,
		"denial_risk_score": score,
		"graded_by":         gradedBy,
	}
	if summary != "" {
		updates["summary"] = summary
	}

	res := r.db.WithContext(ctx).Model(&review.Analysis{}).
		Where("case_id = ?", caseID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// First grade for a case that was created without an analysis.
		a := &review.Analysis{
			CaseID:          caseID,
			Summary:         summary,
			Confidence:      confidence,
			DenialRiskScore: score,
			GradedBy:        &gradedBy,
		}
		if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
			return nil, err
		}
		return a, nil
	}

	var a review.Analysis
	if err := r.db.WithContext(ctx).First(&a, "case_id = ?", caseID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}
