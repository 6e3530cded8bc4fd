package store

import (
	"time"

	"github.com/maplanning/lead-scout/internal/model"
)

var (
	t0 = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(7 * 24 * time.Hour)
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func scoredLead(source, ref string, score int, status string) model.ScoredLead {
	return model.ScoredLead{
		CanonicalLead: model.CanonicalLead{
			SourceID:     source,
			Reference:    ref,
			Address:      "1 High Street, Camden",
			Description:  "Change of use to restaurant",
			Applicant:    "ABC Architects Ltd",
			Status:       status,
			DateReceived: "2026-10-01",
			OriginLink:   "https://example.gov.uk/" + ref,
		},
		Score:    score,
		Priority: model.PriorityMedium,
		Reasons:  []string{"company applicant"},
	}
}
