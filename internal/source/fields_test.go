package source

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maplanning/lead-scout/internal/model"
)

func TestFields_First(t *testing.T) {
	f := NewFields(map[string]any{
		"Applicant_Name": "  ",
		"applicant":      "Acme Ltd",
		"agent_name":     "Agent Co",
		"uprn":           json.Number("100023336956"),
		"score":          float64(2.5),
		"flag":           true,
		"nested":         map[string]any{"x": 1},
		"sentinel":       "n/a",
	})

	assert.Equal(t, "Acme Ltd", f.First("applicant_name", "applicant", "agent_name"))
	assert.Equal(t, "Agent Co", f.First("agent_name", "applicant"))
	assert.Equal(t, "100023336956", f.First("uprn"))
	assert.Equal(t, "2.5", f.First("score"))
	assert.Equal(t, "true", f.First("flag"))
	assert.Equal(t, model.NA, f.First("nested"))
	assert.Equal(t, model.NA, f.First("sentinel"))
	assert.Equal(t, model.NA, f.First("missing", "also_missing"))
	assert.Equal(t, model.NA, f.First())
}

func TestMapping_MergePutsOverridesFirst(t *testing.T) {
	m := Mapping{Reference: []string{"ApplicationNumber", "reference"}}.merge(genericMapping)
	assert.Equal(t, []string{"applicationnumber", "reference", "application_number", "case_reference"}, m.Reference)
	assert.Equal(t, genericMapping.Address, m.Address)
}

func TestMapping_LeadLinkFallback(t *testing.T) {
	d := Descriptor{Name: "london", Link: "https://planningdata.london.gov.uk/planning-application/{reference}"}
	m := londonMapping

	l := m.Lead(d, NewFields(map[string]any{"planning_application_reference": "26/0001 A"}))
	assert.Equal(t, "https://planningdata.london.gov.uk/planning-application/26%2F0001%20A", l.OriginLink)
	assert.Equal(t, "london", l.SourceID)
	assert.Equal(t, model.NA, l.Applicant)

	l = m.Lead(Descriptor{Name: "x"}, NewFields(map[string]any{}))
	assert.Equal(t, "#", l.OriginLink)
	assert.Equal(t, model.NA, l.Reference)
}

func TestDescriptor_LinkFor(t *testing.T) {
	d := Descriptor{Link: "https://example.org/app/{reference}"}
	assert.Equal(t, "https://example.org/app/ABC", d.LinkFor("ABC"))
	assert.Equal(t, "#", d.LinkFor(model.NA))
	assert.Equal(t, "#", Descriptor{}.LinkFor("ABC"))
}
