package source

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/model"
)

// londonMapping is the Planning London Datahub field precedence:
//
//	reference   planning_application_reference, reference, application_number
//	address     site_address, address
//	description development_description, proposal, description
//	applicant   applicant_name, applicant, agent_name
//	status      status_description, status, decision
//	date        date_received, received_date, valid_date
//
// The application link is built from the reference.
var londonMapping = Mapping{
	Reference:   []string{"planning_application_reference", "reference", "application_number"},
	Address:     []string{"site_address", "address"},
	Description: []string{"development_description", "proposal", "description"},
	Applicant:   []string{"applicant_name", "applicant", "agent_name"},
	Status:      []string{"status_description", "status", "decision"},
	Date:        []string{"date_received", "received_date", "valid_date"},
}

// LondonSource reads the Planning London Datahub guest API. Endpoints are
// tried in order until one answers.
type LondonSource struct {
	desc    Descriptor
	mapping Mapping
	http    JSONGetter
}

// NewLondonSource creates a LondonSource.
func NewLondonSource(d Descriptor, client JSONGetter) *LondonSource {
	return &LondonSource{desc: d, mapping: d.Fields.merge(londonMapping), http: client}
}

// Name implements Source.
func (s *LondonSource) Name() string { return s.desc.Name }

// Fetch implements Source.
func (s *LondonSource) Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error) {
	q := url.Values{
		"start_date": {w.StartDate()},
		"end_date":   {w.EndDate()},
		"limit":      {strconv.Itoa(w.PageSize)},
	}

	var lastErr error
	for _, endpoint := range s.desc.Endpoints() {
		body, err := s.http.GetJSON(ctx, endpoint, q)
		if err != nil {
			lastErr = err
			zap.L().Debug("source: london endpoint failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			continue
		}
		records, err := Records(body, "data", "records")
		if err != nil {
			lastErr = err
			continue
		}
		return mapAll(s.desc, s.mapping, records, w.PageSize), nil
	}
	if lastErr == nil {
		lastErr = eris.New("no endpoints configured")
	}
	return nil, eris.Wrapf(lastErr, "source: %s", s.desc.Name)
}

// mapAll maps at most limit records.
func mapAll(d Descriptor, m Mapping, records []Fields, limit int) []model.CanonicalLead {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]model.CanonicalLead, 0, len(records))
	for _, r := range records {
		out = append(out, m.Lead(d, r))
	}
	return out
}
