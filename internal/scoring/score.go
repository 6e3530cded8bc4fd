package scoring

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maplanning/lead-scout/internal/model"
)

var defaultRubric = DefaultRubric()

// Score qualifies a lead against the default rubric.
func Score(l model.CanonicalLead) model.ScoredLead {
	return defaultRubric.Score(l)
}

// Score qualifies a lead against r. The result is a pure function of the
// lead's applicant, description and status text.
func (r Rubric) Score(l model.CanonicalLead) model.ScoredLead {
	text := fieldText(l)

	total := 0
	reasons := make([]string, 0, 4)
	for _, rule := range r {
		if !rule.matches(text[rule.Field]) {
			continue
		}
		total += rule.Weight
		reasons = append(reasons, rule.Reason)
	}

	return model.ScoredLead{
		CanonicalLead: l,
		Score:         total,
		Priority:      PriorityFor(total),
		Reasons:       reasons,
	}
}

// ScoreAll scores leads in order.
func (r Rubric) ScoreAll(leads []model.CanonicalLead) []model.ScoredLead {
	out := make([]model.ScoredLead, len(leads))
	for i := range leads {
		out[i] = r.Score(leads[i])
	}
	return out
}

// PriorityFor maps a total score to its tier.
func PriorityFor(score int) model.Priority {
	switch {
	case score >= HighThreshold:
		return model.PriorityHigh
	case score >= MediumThreshold:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func (rule Rule) matches(text string) bool {
	for _, kw := range rule.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// fieldText lower-cases the inspected fields once per lead. The NA sentinel
// lower-cases to "n/a" which no keyword matches.
func fieldText(l model.CanonicalLead) map[Field]string {
	// cases.Caser is stateful and not safe for concurrent use.
	lower := cases.Lower(language.Und)
	return map[Field]string{
		FieldApplicant:   lower.String(l.Applicant),
		FieldDescription: lower.String(l.Description),
		FieldStatus:      lower.String(l.Status),
	}
}
