// Package scoring qualifies canonical planning leads against a fixed rubric.
//
// The rubric is a table of rules. Every rule is evaluated against every lead;
// the score is the sum of the weights of the rules that fire and the reasons
// are reported in table order. Scoring never fails and has no hidden state.
package scoring

// Field selects which canonical text field a rule inspects.
type Field int

const (
	FieldApplicant Field = iota
	FieldDescription
	FieldStatus
)

func (f Field) String() string {
	switch f {
	case FieldApplicant:
		return "applicant"
	case FieldDescription:
		return "description"
	case FieldStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Rule fires when any of its keywords is a substring of the lower-cased field.
type Rule struct {
	Name     string
	Field    Field
	Keywords []string
	Weight   int
	Reason   string
}

// Priority thresholds on the total score.
const (
	HighThreshold   = 6
	MediumThreshold = 3
)

// Rubric is an ordered rule table. Order fixes the order of reported reasons;
// it never changes the numeric score.
type Rubric []Rule

// DefaultRubric returns the canonical qualification rubric. Extend it by
// appending rows.
func DefaultRubric() Rubric {
	return Rubric{
		{
			Name:  "company_applicant",
			Field: FieldApplicant,
			Keywords: []string{
				"ltd", "limited", "architects", "developments", "properties",
				"consulting", "design", "builders", "construction", "estates",
			},
			Weight: 3,
			Reason: "company applicant",
		},
		{
			Name:  "commercial_project",
			Field: FieldDescription,
			Keywords: []string{
				"retail", "commercial", "mixed use", "office", "shop",
				"restaurant", "cafe", "bar", "pub", "store",
			},
			Weight: 3,
			Reason: "commercial project",
		},
		{
			Name:     "refused",
			Field:    FieldStatus,
			Keywords: []string{"refused", "reject", "dismissed"},
			Weight:   2,
			Reason:   "refused / appeal opportunity",
		},
		{
			Name:     "pending",
			Field:    FieldStatus,
			Keywords: []string{"pending", "awaiting", "incomplete", "further information"},
			Weight:   1,
			Reason:   "needs additional info",
		},
		{
			Name:     "prior_approval",
			Field:    FieldDescription,
			Keywords: []string{"prior approval", "change of use"},
			Weight:   2,
			Reason:   "prior approval / change of use",
		},
		{
			Name:     "hmo",
			Field:    FieldDescription,
			Keywords: []string{"hmo", "house in multiple occupation"},
			Weight:   -5,
			Reason:   "HMO excluded",
		},
		{
			Name:  "extension",
			Field: FieldDescription,
			Keywords: []string{
				"extension", "basement", "loft conversion", "rear extension",
				"side extension", "single storey", "two storey extension",
			},
			Weight: -5,
			Reason: "extension/basement excluded",
		},
		{
			Name:     "private_homeowner",
			Field:    FieldApplicant,
			Keywords: []string{"mr ", "mrs ", "miss ", "ms ", "dr "},
			Weight:   -2,
			Reason:   "private homeowner",
		},
		{
			Name:     "small_domestic",
			Field:    FieldDescription,
			Keywords: []string{"conservatory", "porch", "garage", "shed", "fence", "outbuilding"},
			Weight:   -3,
			Reason:   "small domestic work",
		},
	}
}
