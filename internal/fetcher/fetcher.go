// Package fetcher retrieves raw planning data over HTTP(S) and FTP and
// decodes the JSON and CSV payloads council endpoints return.
//
// Fetchers do not retry. Failures worth retrying are returned as
// *resilience.TransientError so the caller's retry policy can decide.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download returns the body of rawURL. The caller closes it.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Router dispatches downloads by URL scheme.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
}

// Download implements Fetcher.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	switch u.Scheme {
	case "http", "https":
		if r.HTTP == nil {
			return nil, eris.New("fetcher: no http fetcher configured")
		}
		return r.HTTP.Download(ctx, rawURL)
	case "ftp":
		if r.FTP == nil {
			return nil, eris.New("fetcher: no ftp fetcher configured")
		}
		return r.FTP.Download(ctx, rawURL)
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
