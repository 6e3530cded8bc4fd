package source

import (
	"strings"
	"time"

	"github.com/maplanning/lead-scout/internal/model"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"02/01/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate parses the date formats councils publish. UK day-first order is
// assumed for slash dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// inWindow drops leads whose received date parses and falls outside w.
// Leads with unknown or unparseable dates are kept.
func inWindow(leads []model.CanonicalLead, w Window) []model.CanonicalLead {
	out := leads[:0]
	for _, l := range leads {
		if t, ok := ParseDate(l.DateReceived); ok && !w.Contains(t) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// firstInWindow filters to w, then keeps at most w.PageSize leads.
func firstInWindow(leads []model.CanonicalLead, w Window) []model.CanonicalLead {
	leads = inWindow(leads, w)
	if w.PageSize > 0 && len(leads) > w.PageSize {
		leads = leads[:w.PageSize]
	}
	return leads
}
