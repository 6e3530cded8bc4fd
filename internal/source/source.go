// Package source turns council planning data into canonical leads.
//
// Each Source wraps one upstream endpoint and owns the mapping from that
// endpoint's schema to model.CanonicalLead. Sources return errors; Collect
// applies the timeout, retry and circuit-breaker policy and substitutes the
// synthetic fallback when a source cannot be read.
package source

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/maplanning/lead-scout/internal/fetcher"
	"github.com/maplanning/lead-scout/internal/model"
)

// Source fetches canonical leads for a lookback window.
type Source interface {
	Name() string
	Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error)
}

// Window is the requested lookback period and page size.
type Window struct {
	Start    time.Time
	End      time.Time
	PageSize int
}

// DefaultPageSize is the per-request record limit when none is configured.
const DefaultPageSize = 100

// NewWindow returns the window ending at now and reaching days back.
func NewWindow(now time.Time, days, pageSize int) Window {
	if days < 1 {
		days = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return Window{
		Start:    now.AddDate(0, 0, -days),
		End:      now,
		PageSize: pageSize,
	}
}

// StartDate formats Start as YYYY-MM-DD.
func (w Window) StartDate() string { return w.Start.Format(time.DateOnly) }

// EndDate formats End as YYYY-MM-DD.
func (w Window) EndDate() string { return w.End.Format(time.DateOnly) }

// Contains reports whether t falls inside the window, compared by day.
func (w Window) Contains(t time.Time) bool {
	day := t.Format(time.DateOnly)
	return day >= w.StartDate() && day <= w.EndDate()
}

// JSONGetter issues a GET and decodes a JSON body.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values) (any, error)
}

// PageDownloader downloads an HTML page transcoded to UTF-8.
type PageDownloader interface {
	DownloadUTF8(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Deps are the transports adapters are built with.
type Deps struct {
	JSON  JSONGetter
	Pages PageDownloader
	// Files downloads feeds and bulk CSV files over http(s) or ftp.
	Files fetcher.Fetcher
}

// NewDeps wires the default fetchers.
func NewDeps(h *fetcher.HTTPFetcher, f *fetcher.FTPFetcher) Deps {
	return Deps{
		JSON:  h,
		Pages: h,
		Files: &fetcher.Router{HTTP: h, FTP: f},
	}
}
