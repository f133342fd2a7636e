package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/internal/domain/pacase"
	"github.com/careloop/priorauth/internal/domain/review"
)

// ReviewService mutates the per-case review items (payer rules, risk factors,
// policy gaps, recommendations) and regrades the analysis. Every mutation
// returns the fresh projections so callers see the effect immediately.
type ReviewService struct {
	repo     review.Repository
	caseRepo pacase.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewReviewService(repo review.Repository, caseRepo pacase.Repository, auditSvc *AuditService, log *zap.Logger) *ReviewService {
	return &ReviewService{repo: repo, caseRepo: caseRepo, auditSvc: auditSvc, log: log}
}

// ReviewUpdate is the result of a review-item mutation: the updated bundle
// and the recomputed projections.
type ReviewUpdate struct {
	Review          *review.CaseReview `json:"review"`
	ProgressPercent int                `json:"progress_percent"`
	ReadyForPA      bool               `json:"ready_for_pa"`
}

func (s *ReviewService) UpdateRuleStatus(ctx context.Context, caseID, ruleID uuid.UUID, status review.RuleStatus, evidence string, actor pacase.Actor, ip string) (*ReviewUpdate, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}
	if !status.IsValid() {
		return nil, review.ErrInvalidItemStatus
	}
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateRuleStatus(ctx, caseID, ruleID, status, evidence); err != nil {
		return nil, err
	}

	s.audit(ctx, caseID, "payer_rule", ruleID, string(status), actor, ip)
	return s.projections(ctx, caseID)
}

func (s *ReviewService) UpdateRiskStatus(ctx context.Context, caseID, riskID uuid.UUID, status review.RiskStatus, actor pacase.Actor, ip string) (*ReviewUpdate, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}
	if !status.IsValid() {
		return nil, review.ErrInvalidItemStatus
	}
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateRiskStatus(ctx, caseID, riskID, status); err != nil {
		return nil, err
	}

	s.audit(ctx, caseID, "risk_factor", riskID, string(status), actor, ip)
	return s.projections(ctx, caseID)
}

func (s *ReviewService) UpdateGapStatus(ctx context.Context, caseID, gapID uuid.UUID, status review.GapStatus, actor pacase.Actor, ip string) (*ReviewUpdate, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}
	if !status.IsValid() {
		return nil, review.ErrInvalidItemStatus
	}
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateGapStatus(ctx, caseID, gapID, status); err != nil {
		return nil, err
	}

	s.audit(ctx, caseID, "policy_gap", gapID, string(status), actor, ip)
	return s.projections(ctx, caseID)
}

func (s *ReviewService) UpdateRecommendationStatus(ctx context.Context, caseID, recID uuid.UUID, status review.RecommendationStatus, actor pacase.Actor, ip string) (*ReviewUpdate, error) {
	if !actor.Role.CanMutate() {
		return nil, ErrForbidden
	}
	if !status.IsValid() {
		return nil, review.ErrInvalidItemStatus
	}
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateRecommendationStatus(ctx, caseID, recID, status); err != nil {
		return nil, err
	}

	s.audit(ctx, caseID, "recommendation", recID, string(status), actor, ip)
	return s.projections(ctx, caseID)
}

// RegradeAnalysis updates a case's confidence level and denial-risk score.
// Physician or admin only: confidence gates PA readiness.
func (s *ReviewService) RegradeAnalysis(ctx context.Context, caseID uuid.UUID, confidence review.ConfidenceLevel, score int, summary string, actor pacase.Actor, ip string) (*ReviewUpdate, error) {
	if actor.Role != domain.RolePhysician && actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	if !confidence.IsValid() {
		return nil, review.ErrInvalidConfidence
	}
	if score < 0 || score > 100 {
		return nil, &ValidationError{Fields: []string{"denial_risk_score must be between 0 and 100"}}
	}
	if _, err := s.caseRepo.GetByID(ctx, caseID); err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateAnalysis(ctx, caseID, confidence, score, summary, actor.ID); err != nil {
		return nil, err
	}

	s.audit(ctx, caseID, "analysis", caseID, string(confidence), actor, ip)
	return s.projections(ctx, caseID)
}

func (s *ReviewService) projections(ctx context.Context, caseID uuid.UUID) (*ReviewUpdate, error) {
	rv, err := s.repo.GetByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("reloading review items: %w", err)
	}
	return &ReviewUpdate{
		Review:          rv,
		ProgressPercent: review.ProgressPercent(rv),
		ReadyForPA:      review.ReadyForPA(rv),
	}, nil
}

func (s *ReviewService) audit(ctx context.Context, caseID uuid.UUID, kind string, itemID uuid.UUID, status string, actor pacase.Actor, ip string) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       actor.ID,
		UserRole:     actor.Role,
		Action:       domain.ActionUpdate,
		ResourceType: kind,
		ResourceID:   itemID.String(),
		CaseID:       &caseID,
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"status":%q}`, status),
	})
}
