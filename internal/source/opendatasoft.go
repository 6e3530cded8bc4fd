package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
)

// odsMaxLimit is the largest page the explore v2.1 API returns.
const odsMaxLimit = 100

// OpenDataSoftSource reads an OpenDataSoft explore v2.1 records endpoint.
// Camden, Bristol and Birmingham publish through it, each with its own
// column names, so the precedence chains come from the descriptor and the
// generic names are tried after them.
type OpenDataSoftSource struct {
	desc    Descriptor
	mapping Mapping
	http    JSONGetter
}

// NewOpenDataSoftSource creates an OpenDataSoftSource.
func NewOpenDataSoftSource(d Descriptor, client JSONGetter) *OpenDataSoftSource {
	return &OpenDataSoftSource{desc: d, mapping: d.Fields.merge(genericMapping), http: client}
}

// Name implements Source.
func (s *OpenDataSoftSource) Name() string { return s.desc.Name }

// Fetch implements Source. When the descriptor names a date field the window
// is pushed to the API as an ODSQL where clause and results are ordered
// newest first.
func (s *OpenDataSoftSource) Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error) {
	q := url.Values{"limit": {strconv.Itoa(min(w.PageSize, odsMaxLimit))}}
	if f := s.desc.DateField; f != "" {
		q.Set("order_by", f+" DESC")
		q.Set("where", fmt.Sprintf("%s >= date'%s' AND %s <= date'%s'", f, w.StartDate(), f, w.EndDate()))
	}

	body, err := s.http.GetJSON(ctx, s.desc.URL, q)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	records, err := Records(body, "results", "records")
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	return mapAll(s.desc, s.mapping, records, w.PageSize), nil
}
