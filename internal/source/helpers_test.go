package source

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/maplanning/lead-scout/internal/fetcher"
	"github.com/maplanning/lead-scout/internal/model"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

// fakeJSON serves canned JSON bodies per endpoint and records queries.
type fakeJSON struct {
	mu      sync.Mutex
	bodies  map[string]string
	errs    map[string]error
	queries map[string]url.Values
}

func newFakeJSON() *fakeJSON {
	return &fakeJSON{
		bodies:  map[string]string{},
		errs:    map[string]error{},
		queries: map[string]url.Values{},
	}
}

func (f *fakeJSON) GetJSON(_ context.Context, rawURL string, q url.Values) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[rawURL] = q
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	return fetcher.DecodeJSON(strings.NewReader(f.bodies[rawURL]))
}

// fixedWindow is 1-14 Oct 2026.
func fixedWindow() Window {
	return NewWindow(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC), 13, 100)
}

// stubSource returns canned leads or an error, counting calls.
type stubSource struct {
	name  string
	leads []model.CanonicalLead
	errs  []error
	calls int
	mu    sync.Mutex
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context, Window) ([]model.CanonicalLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.leads, nil
}
