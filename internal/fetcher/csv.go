package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures CSV parsing.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	// MaxRows stops reading after this many data rows. 0 = no limit.
	MaxRows int
}

// StreamCSV reads header-keyed rows from r and sends them on the returned
// channel. Header names are trimmed and lower-cased; values are trimmed.
// Both channels are closed when reading stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan map[string]string, <-chan error) {
	rowCh := make(chan map[string]string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		for i, h := range header {
			header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		}

		for n := 0; opts.MaxRows == 0 || n < opts.MaxRows; n++ {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			row := make(map[string]string, len(header))
			for i, v := range record {
				if i < len(header) && header[i] != "" {
					row[header[i]] = strings.TrimSpace(v)
				}
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV collects every row StreamCSV yields.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]map[string]string, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)
	var rows []map[string]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return rows, err
	}
	return rows, nil
}
