package review

import (
	"time"

	"github.com/google/uuid"
)

// RuleStatus is the evidence state of a single payer policy criterion.
type RuleStatus string

const (
	RuleSatisfied RuleStatus = "satisfied"
	RuleMissing   RuleStatus = "missing"
	RuleUnclear   RuleStatus = "unclear"
)

func (s RuleStatus) IsValid() bool {
	switch s {
	case RuleSatisfied, RuleMissing, RuleUnclear:
		return true
	}
	return false
}

// PayerRule is one discrete criterion from the payer's medical policy that
// must be evidenced before submission.
type PayerRule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	CaseID      uuid.UUID  `gorm:"column:case_id;type:uuid;not null;index"`
	PolicyRef   string     `gorm:"column:policy_ref;type:varchar(100)"`
	Description string     `gorm:"column:description;type:text;not null"`
	Status      RuleStatus `gorm:"column:status;type:varchar(20);not null;default:'missing'"`
	Evidence    string     `gorm:"column:evidence;type:text"`
}

func (PayerRule) TableName() string {
	return "clinical.payer_rules"
}

type RiskSeverity string

const (
	SeverityLow    RiskSeverity = "low"
	SeverityMedium RiskSeverity = "medium"
	SeverityHigh   RiskSeverity = "high"
)

func (s RiskSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

type RiskStatus string

const (
	RiskOpen          RiskStatus = "open"
	RiskAddressed     RiskStatus = "addressed"
	RiskNotApplicable RiskStatus = "not_applicable"
)

func (s RiskStatus) IsValid() bool {
	switch s {
	case RiskOpen, RiskAddressed, RiskNotApplicable:
		return true
	}
	return false
}

// RiskFactor is a denial-risk flag raised against the case.
type RiskFactor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	CaseID      uuid.UUID    `gorm:"column:case_id;type:uuid;not null;index"`
	Description string       `gorm:"column:description;type:text;not null"`
	Severity    RiskSeverity `gorm:"column:severity;type:varchar(10);not null"`
	Status      RiskStatus   `gorm:"column:status;type:varchar(20);not null;default:'open'"`
}

func (RiskFactor) TableName() string {
	return "clinical.risk_factors"
}

type GapStatus string

const (
	GapOpen       GapStatus = "open"
	GapInProgress GapStatus = "in_progress"
	GapResolved   GapStatus = "resolved"
)

func (s GapStatus) IsValid() bool {
	switch s {
	case GapOpen, GapInProgress, GapResolved:
		return true
	}
	return false
}

// PolicyGap is a documentation gap between the chart and the payer policy.
type PolicyGap struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	CaseID      uuid.UUID `gorm:"column:case_id;type:uuid;not null;index"`
	Description string    `gorm:"column:description;type:text;not null"`
	Status      GapStatus `gorm:"column:status;type:varchar(20);not null;default:'open'"`
}

func (PolicyGap) TableName() string {
	return "clinical.policy_gaps"
}

type RecommendationStatus string

const (
	RecPending    RecommendationStatus = "pending"
	RecInProgress RecommendationStatus = "in_progress"
	RecCompleted  RecommendationStatus = "completed"
	RecDismissed  RecommendationStatus = "dismissed"
)

func (s RecommendationStatus) IsValid() bool {
	switch s {
	case RecPending, RecInProgress, RecCompleted, RecDismissed:
		return true
	}
	return false
}

// Recommendation is a suggested action to strengthen the case before submission.
type Recommendation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	CaseID      uuid.UUID            `gorm:"column:case_id;type:uuid;not null;index"`
	Description string               `gorm:"column:description;type:text;not null"`
	Status      RecommendationStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'"`
}

func (Recommendation) TableName() string {
	return "clinical.recommendations"
}

type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

func (c ConfidenceLevel) IsValid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// Analysis is the stored case assessment: a narrative summary, an overall
// confidence grade and a denial-risk score. One row per case.
type Analysis struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	CaseID          uuid.UUID       `gorm:"column:case_id;type:uuid;not null;uniqueIndex"`
	Summary         string          `gorm:"column:summary;type:text"`
	Confidence      ConfidenceLevel `gorm:"column:confidence;type:varchar(10);not null;default:'low'"`
	DenialRiskScore int             `gorm:"column:denial_risk_score;not null;default:0"` // 0-100
	GradedBy        *uuid.UUID      `gorm:"column:graded_by;type:uuid"`
}

func (Analysis) TableName() string {
	return "clinical.case_analyses"
}

// CaseReview bundles everything that feeds the derived projections for one case.
type CaseReview struct {
	Rules           []*PayerRule      `json:"payer_rules"`
	Gaps            []*PolicyGap      `json:"policy_gaps"`
	Risks           []*RiskFactor     `json:"risk_factors"`
	Recommendations []*Recommendation `json:"recommendations"`
	Analysis        *Analysis         `json:"analysis,omitempty"`
}
