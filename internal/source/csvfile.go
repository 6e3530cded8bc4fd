package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/fetcher"
	"github.com/maplanning/lead-scout/internal/model"
)

// csvScanLimit bounds how many rows are read from a bulk file before the
// window filter. Bulk exports are usually newest-first.
const csvScanLimit = 5000

// CSVSource reads a bulk CSV export over http(s) or ftp. Rows are keyed by
// header and mapped with the ckan precedence chains; the window is applied
// locally.
type CSVSource struct {
	desc    Descriptor
	mapping Mapping
	files   fetcher.Fetcher
}

// NewCSVSource creates a CSVSource.
func NewCSVSource(d Descriptor, files fetcher.Fetcher) *CSVSource {
	return &CSVSource{desc: d, mapping: d.Fields.merge(ckanMapping), files: files}
}

// Name implements Source.
func (s *CSVSource) Name() string { return s.desc.Name }

// Fetch implements Source.
func (s *CSVSource) Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error) {
	body, err := s.files.Download(ctx, s.desc.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	defer body.Close() //nolint:errcheck

	rows, err := fetcher.ReadCSV(ctx, body, fetcher.CSVOptions{LazyQuotes: true, MaxRows: csvScanLimit})
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}

	records := make([]Fields, 0, len(rows))
	for _, r := range rows {
		f := make(Fields, len(r))
		for k, v := range r {
			f[headerKey(k)] = v
		}
		records = append(records, f)
	}

	return firstInWindow(mapAll(s.desc, s.mapping, records, 0), w), nil
}
