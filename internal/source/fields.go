package source

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/maplanning/lead-scout/internal/model"
)

// Fields is a raw upstream record with case-folded keys. It never leaves the
// adapter that decoded it.
type Fields map[string]any

// NewFields folds the keys of a decoded record.
func NewFields(m map[string]any) Fields {
	f := make(Fields, len(m))
	for k, v := range m {
		f[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return f
}

// First returns the first non-empty value among keys, in order, or model.NA.
func (f Fields) First(keys ...string) string {
	for _, k := range keys {
		if s := text(f[strings.ToLower(k)]); s != "" {
			return s
		}
	}
	return model.NA
}

// text formats scalar JSON values. Objects, arrays and the literal "N/A"
// count as empty.
func text(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, model.NA) {
		return ""
	}
	return s
}

// chain prepends override keys to the defaults, dropping duplicates.
func chain(override, defaults []string) []string {
	out := make([]string, 0, len(override)+len(defaults))
	seen := make(map[string]bool, cap(out))
	for _, k := range append(append([]string(nil), override...), defaults...) {
		k = strings.ToLower(k)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// merge layers descriptor overrides on top of an adapter's default mapping.
func (m Mapping) merge(defaults Mapping) Mapping {
	return Mapping{
		Reference:   chain(m.Reference, defaults.Reference),
		Address:     chain(m.Address, defaults.Address),
		Description: chain(m.Description, defaults.Description),
		Applicant:   chain(m.Applicant, defaults.Applicant),
		Status:      chain(m.Status, defaults.Status),
		Date:        chain(m.Date, defaults.Date),
		Link:        chain(m.Link, defaults.Link),
	}
}

// Lead maps a record through the precedence chains. The origin link falls
// back to the descriptor's link template, then to "#".
func (m Mapping) Lead(d Descriptor, f Fields) model.CanonicalLead {
	l := model.CanonicalLead{
		SourceID:     d.Name,
		Reference:    f.First(m.Reference...),
		Address:      f.First(m.Address...),
		Description:  f.First(m.Description...),
		Applicant:    f.First(m.Applicant...),
		Status:       f.First(m.Status...),
		DateReceived: f.First(m.Date...),
	}
	if link := f.First(m.Link...); link != model.NA {
		l.OriginLink = link
	} else {
		l.OriginLink = d.LinkFor(l.Reference)
	}
	return l.Normalize()
}

// genericMapping is appended after every source-specific chain.
var genericMapping = Mapping{
	Reference:   []string{"reference", "application_number", "case_reference"},
	Address:     []string{"address", "site_address", "location"},
	Description: []string{"description", "proposal", "development_description"},
	Applicant:   []string{"applicant_name", "applicant", "agent_name"},
	Status:      []string{"status", "decision", "status_description"},
	Date:        []string{"date_received", "received_date", "valid_date"},
	Link:        []string{"url", "link"},
}
