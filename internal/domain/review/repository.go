package review

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateBundle persists a case's intake review items and analysis in one
	// transaction. Called once, when the case is created.
	CreateBundle(ctx context.Context, caseID uuid.UUID, r *CaseReview) error

	// GetByCase returns all review items and the analysis for a case. Slices
	// are empty, never nil, when a case has no items of a kind.
	GetByCase(ctx context.Context, caseID uuid.UUID) (*CaseReview, error)

	// UpdateRuleStatus sets a payer rule's status and optional evidence note.
	// Returns ErrItemNotFound if the rule does not belong to the case.
	UpdateRuleStatus(ctx context.Context, caseID, ruleID uuid.UUID, status RuleStatus, evidence string) (*PayerRule, error)

	UpdateRiskStatus(ctx context.Context, caseID, riskID uuid.UUID, status RiskStatus) (*RiskFactor, error)

	UpdateGapStatus(ctx context.Context, caseID, gapID uuid.UUID, status GapStatus) (*PolicyGap, error)

	UpdateRecommendationStatus(ctx context.Context, caseID, recID uuid.UUID, status RecommendationStatus) (*Recommendation, error)

	// UpdateAnalysis re-grades a case's confidence and denial-risk score.
	UpdateAnalysis(ctx context.Context, caseID uuid.UUID, confidence ConfidenceLevel, score int, summary string, gradedBy uuid.UUID) (*Analysis, error)
}
