package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/maplanning/lead-scout/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{DefaultLimit: rate.Inf})
}

func TestHTTPFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.UserAgent())
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestHTTPFetcher_GetJSON_MergesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "keep", r.URL.Query().Get("existing"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"id":2026001234}]}`))
	}))
	defer srv.Close()

	got, err := newTestFetcher().GetJSON(context.Background(), srv.URL+"?existing=keep", url.Values{"limit": {"100"}})
	require.NoError(t, err)

	results := got.(map[string]any)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, json.Number("2026001234"), results[0].(map[string]any)["id"])
}

func TestHTTPFetcher_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"too many requests", http.StatusTooManyRequests, true},
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"not found", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestFetcher().Download(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Equal(t, tt.transient, resilience.IsTransient(err))

			var te *resilience.TransientError
			if tt.transient {
				require.True(t, errors.As(err, &te))
				assert.Equal(t, tt.status, te.StatusCode)
			}
		})
	}
}

func TestHTTPFetcher_DownloadUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		// 0xE9 is "é" in windows-1252.
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9})
	}))
	defer srv.Close()

	body, err := newTestFetcher().DownloadUTF8(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "café", string(data))
}

func TestHTTPFetcher_LimiterPerHost(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{
		HostLimits: map[string]rate.Limit{"opendata.camden.gov.uk": 1},
	})
	camden := f.limiterFor("opendata.camden.gov.uk")
	assert.Same(t, camden, f.limiterFor("opendata.camden.gov.uk"))
	assert.Equal(t, rate.Limit(1), camden.Limit())
	assert.Equal(t, rate.Limit(4), f.limiterFor("example.org").Limit())
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Download(ctx, srv.URL)
	require.Error(t, err)
}

func TestDefaultHostLimits(t *testing.T) {
	limits := DefaultHostLimits()
	assert.Contains(t, limits, "planningdata.london.gov.uk")
	for host, l := range limits {
		assert.Positive(t, float64(l), host)
	}
}
