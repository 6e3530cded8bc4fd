package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/maplanning/lead-scout/internal/resilience"
)

// DefaultUserAgent identifies the pipeline to council endpoints.
const DefaultUserAgent = "lead-scout/1.0 (+planning lead qualification)"

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration

	// HostLimits overrides the requests-per-second allowance per host.
	HostLimits map[string]rate.Limit

	// DefaultLimit applies to hosts without an override. Default: 4 rps.
	DefaultLimit rate.Limit

	// Client replaces the default http.Client, mainly for tests.
	Client *http.Client
}

// HTTPFetcher implements Fetcher over net/http with a rate limiter per host.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// DefaultHostLimits returns per-host allowances for the open-data platforms
// councils publish through. OpenDataSoft throttles anonymous callers hardest.
func DefaultHostLimits() map[string]rate.Limit {
	return map[string]rate.Limit{
		"opendata.camden.gov.uk":     2,
		"opendata.bristol.gov.uk":    2,
		"data.birmingham.gov.uk":     2,
		"datamillnorth.org":          2,
		"planningdata.london.gov.uk": 5,
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 4
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPFetcher{
		client:   client,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	limit := f.opts.DefaultLimit
	if l, ok := f.opts.HostLimits[host]; ok && l > 0 {
		limit = l
	}
	lim := rate.NewLimiter(limit, 1)
	f.limiters[host] = lim
	return lim
}

// Download implements Fetcher.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DownloadUTF8 is Download with the body transcoded to UTF-8 according to
// the response Content-Type charset.
func (f *HTTPFetcher) DownloadUTF8(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL, "text/html")
	if err != nil {
		return nil, err
	}
	r, err := UTF8Reader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return readCloser{Reader: r, Closer: resp.Body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// GetJSON issues a GET with query appended to rawURL and decodes the body
// into a generic JSON tree.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, query url.Values) (any, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	resp, err := f.get(ctx, u.String(), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	return DecodeJSON(resp.Body)
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	if err := f.limiterFor(req.URL.Host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", req.URL.Host)
	}

	zap.L().Debug("fetcher: response",
		zap.String("host", req.URL.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	_ = resp.Body.Close()
	statusErr := eris.Errorf("fetcher: http %d from %s", resp.StatusCode, req.URL.Host)
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
	}
	return nil, statusErr
}
