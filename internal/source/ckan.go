package source

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
)

// ckanMapping is the CKAN datastore precedence used by Leeds, and by the
// html and csv adapters, which see the same column conventions:
//
//	reference   application_number, reference
//	address     address, site_address
//	description proposal, description
//	applicant   applicant_name, applicant, agent_name
//	status      status, decision
//	date        date_received, received_date
var ckanMapping = Mapping{
	Reference:   []string{"application_number", "reference"},
	Address:     []string{"address", "site_address"},
	Description: []string{"proposal", "description"},
	Applicant:   []string{"applicant_name", "applicant", "agent_name"},
	Status:      []string{"status", "decision"},
	Date:        []string{"date_received", "received_date"},
	Link:        []string{"url", "link"},
}

// CKANSource reads a CKAN datastore_search endpoint. The datastore API has
// no date-range filter, so the window is applied locally.
type CKANSource struct {
	desc    Descriptor
	mapping Mapping
	http    JSONGetter
}

// NewCKANSource creates a CKANSource.
func NewCKANSource(d Descriptor, client JSONGetter) *CKANSource {
	return &CKANSource{desc: d, mapping: d.Fields.merge(ckanMapping), http: client}
}

// Name implements Source.
func (s *CKANSource) Name() string { return s.desc.Name }

// Fetch implements Source.
func (s *CKANSource) Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error) {
	q := url.Values{
		"resource_id": {s.desc.ResourceID},
		"limit":       {strconv.Itoa(w.PageSize)},
	}

	body, err := s.http.GetJSON(ctx, s.desc.URL, q)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	if obj, ok := body.(map[string]any); ok {
		if success, ok := obj["success"].(bool); ok && !success {
			return nil, eris.Errorf("source: %s: ckan reported failure", s.desc.Name)
		}
	}
	records, err := Records(body, "result.records", "records", "results")
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	return firstInWindow(mapAll(s.desc, s.mapping, records, 0), w), nil
}
