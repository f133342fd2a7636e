package review

import "math"

// Component weights for the progress projection. A component with no items
// contributes its full weight, except payer rules which always exist for a
// reviewable case and contribute proportionally.
const (
	weightRules = 40.0
	weightGaps  = 30.0
	weightRisks = 20.0
	weightRecs  = 10.0
)

// ProgressPercent computes how far a case has advanced toward submission as a
// pure function of its review items. Recomputing with identical inputs yields
// an identical result; the value is never stored.
func ProgressPercent(r *CaseReview) int {
	var total float64

	if n := len(r.Rules); n > 0 {
		satisfied := 0
		for _, rule := range r.Rules {
			if rule.Status == RuleSatisfied {
				satisfied++
			}
		}
		total += weightRules * float64(satisfied) / float64(n)
	}

	if n := len(r.Gaps); n > 0 {
		resolved := 0
		for _, g := range r.Gaps {
			if g.Status == GapResolved {
				resolved++
			}
		}
		total += weightGaps * float64(resolved) / float64(n)
	} else {
		total += weightGaps
	}

	if n := len(r.Risks); n > 0 {
		addressed := 0
		for _, rf := range r.Risks {
			if rf.Status == RiskAddressed || rf.Status == RiskNotApplicable {
				addressed++
			}
		}
		total += weightRisks * float64(addressed) / float64(n)
	} else {
		total += weightRisks
	}

	if n := len(r.Recommendations); n > 0 {
		completed := 0
		for _, rec := range r.Recommendations {
			if rec.Status == RecCompleted || rec.Status == RecDismissed {
				completed++
			}
		}
		total += weightRecs * float64(completed) / float64(n)
	} else {
		total += weightRecs
	}

	pct := int(math.Round(total))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ReadyForPA is the submission gate. It is stricter than ProgressPercent
// reaching 100: every payer rule satisfied, no open high-severity risk, and
// overall confidence graded high. A single open high-severity risk vetoes
// readiness regardless of rule and gap state.
func ReadyForPA(r *CaseReview) bool {
	if len(r.Rules) == 0 {
		return false
	}
	for _, rule := range r.Rules {
		if rule.Status != RuleSatisfied {
			return false
		}
	}
	for _, rf := range r.Risks {
		if rf.Severity == SeverityHigh && rf.Status == RiskOpen {
			return false
		}
	}
	return r.Analysis != nil && r.Analysis.Confidence == ConfidenceHigh
}
