package pipeline

import (
	"sort"
	"strings"

	"github.com/maplanning/lead-scout/internal/model"
)

// Qualify keeps leads scoring at least minScore and, when refusedOnly is
// set, whose status mentions "refused". Input order is preserved.
func Qualify(leads []model.ScoredLead, minScore int, refusedOnly bool) []model.ScoredLead {
	out := make([]model.ScoredLead, 0, len(leads))
	for _, l := range leads {
		if l.Score < minScore {
			continue
		}
		if refusedOnly && !strings.Contains(strings.ToLower(l.Status), "refused") {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Rank sorts leads by score descending in place. Ties keep fetch order.
func Rank(leads []model.ScoredLead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].Score > leads[j].Score
	})
}
