package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rules(statuses ...RuleStatus) []*PayerRule {
	out := make([]*PayerRule, len(statuses))
	for i, s := range statuses {
		out[i] = &PayerRule{Status: s}
	}
	return out
}

func gaps(statuses ...GapStatus) []*PolicyGap {
	out := make([]*PolicyGap, len(statuses))
	for i, s := range statuses {
		out[i] = &PolicyGap{Status: s}
	}
	return out
}

func risks(items ...*RiskFactor) []*RiskFactor { return items }

func recs(statuses ...RecommendationStatus) []*Recommendation {
	out := make([]*Recommendation, len(statuses))
	for i, s := range statuses {
		out[i] = &Recommendation{Status: s}
	}
	return out
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name string
		rv   *CaseReview
		want int
	}{
		{
			name: "empty collections contribute their default weights",
			rv:   &CaseReview{},
			// 0 (no rules) + 30 + 20 + 10
			want: 60,
		},
		{
			name: "everything done",
			rv: &CaseReview{
				Rules: rules(RuleSatisfied, RuleSatisfied),
				Gaps:  gaps(GapResolved),
				Risks: risks(&RiskFactor{Severity: SeverityLow, Status: RiskAddressed}),
				Recommendations: recs(RecCompleted),
			},
			want: 100,
		},
		{
			name: "nothing done",
			rv: &CaseReview{
				Rules: rules(RuleMissing, RuleUnclear),
				Gaps:  gaps(GapOpen, GapInProgress),
				Risks: risks(&RiskFactor{Severity: SeverityHigh, Status: RiskOpen}),
				Recommendations: recs(RecPending, RecInProgress),
			},
			want: 0,
		},
		{
			name: "worked example: 3 of 5 rules, open gaps and risks, no recommendations",
			rv: &CaseReview{
				Rules: rules(RuleSatisfied, RuleSatisfied, RuleSatisfied, RuleMissing, RuleUnclear),
				Gaps:  gaps(GapOpen, GapOpen),
				Risks: risks(
					&RiskFactor{Severity: SeverityHigh, Status: RiskOpen},
					&RiskFactor{Severity: SeverityLow, Status: RiskOpen},
				),
			},
			// 40*3/5 + 0 + 0 + 10 = 34
			want: 34,
		},
		{
			name: "half of everything",
			rv: &CaseReview{
				Rules: rules(RuleSatisfied, RuleMissing),
				Gaps:  gaps(GapResolved, GapOpen),
				Risks: risks(
					&RiskFactor{Severity: SeverityMedium, Status: RiskAddressed},
					&RiskFactor{Severity: SeverityMedium, Status: RiskOpen},
				),
				Recommendations: recs(RecCompleted, RecPending),
			},
			// 20 + 15 + 10 + 5
			want: 50,
		},
		{
			name: "not_applicable risks and dismissed recommendations count as handled",
			rv: &CaseReview{
				Rules: rules(RuleSatisfied),
				Gaps:  gaps(GapResolved),
				Risks: risks(&RiskFactor{Severity: SeverityHigh, Status: RiskNotApplicable}),
				Recommendations: recs(RecDismissed),
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProgressPercent(tt.rv)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)

			// Pure function: recomputing with identical inputs is identical.
			assert.Equal(t, got, ProgressPercent(tt.rv))
		})
	}
}

func TestReadyForPA(t *testing.T) {
	highConfidence := &Analysis{Confidence: ConfidenceHigh}

	t.Run("all conditions met", func(t *testing.T) {
		rv := &CaseReview{
			Rules:    rules(RuleSatisfied, RuleSatisfied),
			Risks:    risks(&RiskFactor{Severity: SeverityHigh, Status: RiskAddressed}),
			Analysis: highConfidence,
		}
		assert.True(t, ReadyForPA(rv))
	})

	t.Run("one open high-severity risk vetoes readiness", func(t *testing.T) {
		rv := &CaseReview{
			Rules: rules(RuleSatisfied, RuleSatisfied),
			Gaps:  gaps(GapResolved),
			Risks: risks(
				&RiskFactor{Severity: SeverityHigh, Status: RiskOpen},
			),
			Analysis: highConfidence,
		}
		assert.False(t, ReadyForPA(rv))
		// High progress does not imply readiness.
		assert.GreaterOrEqual(t, ProgressPercent(rv), 80)
	})

	t.Run("open low-severity risk does not block", func(t *testing.T) {
		rv := &CaseReview{
			Rules:    rules(RuleSatisfied),
			Risks:    risks(&RiskFactor{Severity: SeverityLow, Status: RiskOpen}),
			Analysis: highConfidence,
		}
		assert.True(t, ReadyForPA(rv))
	})

	t.Run("one unsatisfied rule blocks", func(t *testing.T) {
		rv := &CaseReview{
			Rules:    rules(RuleSatisfied, RuleUnclear),
			Analysis: highConfidence,
		}
		assert.False(t, ReadyForPA(rv))
	})

	t.Run("medium confidence blocks", func(t *testing.T) {
		rv := &CaseReview{
			Rules:    rules(RuleSatisfied),
			Analysis: &Analysis{Confidence: ConfidenceMedium},
		}
		assert.False(t, ReadyForPA(rv))
	})

	t.Run("missing analysis blocks", func(t *testing.T) {
		rv := &CaseReview{Rules: rules(RuleSatisfied)}
		assert.False(t, ReadyForPA(rv))
	})

	t.Run("case without payer rules is never ready", func(t *testing.T) {
		rv := &CaseReview{Analysis: highConfidence}
		assert.False(t, ReadyForPA(rv))
	})
}
