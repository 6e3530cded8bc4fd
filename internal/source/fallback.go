package source

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/maplanning/lead-scout/internal/model"
)

type sample struct {
	applicant   string
	description string
	status      string
	address     string
}

var samples = []sample{
	{
		applicant:   "ABC Architects Ltd",
		description: "Change of use from retail (Class A1) to mixed use retail and residential",
		status:      "Refused",
		address:     "123 High Street",
	},
	{
		applicant:   "XYZ Developments Limited",
		description: "Prior approval for change of use from office to residential",
		status:      "Pending decision",
		address:     "45 Market Place",
	},
	{
		applicant:   "Smith Design Consultants",
		description: "Change of use of commercial premises to restaurant with outdoor seating",
		status:      "Refused",
		address:     "78 Station Road",
	},
}

// Fallback returns the placeholder leads substituted for an unreadable
// source. The output depends only on the descriptor and w.Start, and every
// lead is marked synthetic.
func Fallback(d Descriptor, w Window) []model.CanonicalLead {
	title := d.DisplayName()
	prefix := refPrefix(title)
	base := w.Start

	out := make([]model.CanonicalLead, 0, len(samples))
	for i, s := range samples {
		out = append(out, model.CanonicalLead{
			SourceID:     d.Name,
			Reference:    fmt.Sprintf("%s/%d/%d", prefix, base.Year(), 1000+i),
			Address:      s.address + ", " + title,
			Description:  s.description,
			Applicant:    s.applicant,
			Status:       s.status,
			DateReceived: base.AddDate(0, 0, i).Format(time.DateOnly),
			OriginLink:   "#",
			IsSynthetic:  true,
		}.Normalize())
	}
	return out
}

// refPrefix is the first three letters of the title, upper-cased.
func refPrefix(title string) string {
	var b strings.Builder
	for _, r := range title {
		if b.Len() >= 3 {
			break
		}
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "SRC"
	}
	return b.String()
}
