package source

import (
	"github.com/rotisserie/eris"
)

// Registry is the immutable set of configured sources, built once at startup
// and shared read-only.
type Registry struct {
	descs   map[string]Descriptor
	sources map[string]Source
	order   []string // registration order for deterministic iteration
}

// NewRegistry validates descs and builds an adapter for each enabled one.
// Names must be unique.
func NewRegistry(descs []Descriptor, deps Deps) (*Registry, error) {
	r := &Registry{
		descs:   make(map[string]Descriptor, len(descs)),
		sources: make(map[string]Source, len(descs)),
	}
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.descs[d.Name]; dup {
			return nil, eris.Errorf("source: duplicate source %q", d.Name)
		}
		d.URLs = append([]string(nil), d.URLs...)
		r.descs[d.Name] = d
		r.order = append(r.order, d.Name)

		if !d.Enabled {
			continue
		}
		src, err := build(d, deps)
		if err != nil {
			return nil, err
		}
		r.sources[d.Name] = src
	}
	return r, nil
}

func build(d Descriptor, deps Deps) (Source, error) {
	need := func(ok bool, what string) error {
		if !ok {
			return eris.Errorf("source: %s: %s transport not configured", d.Name, what)
		}
		return nil
	}

	switch d.Kind {
	case KindLondon:
		return NewLondonSource(d, deps.JSON), need(deps.JSON != nil, "json")
	case KindOpenDataSoft:
		return NewOpenDataSoftSource(d, deps.JSON), need(deps.JSON != nil, "json")
	case KindCKAN:
		return NewCKANSource(d, deps.JSON), need(deps.JSON != nil, "json")
	case KindFeed:
		return NewFeedSource(d, deps.Files), need(deps.Files != nil, "file")
	case KindHTML:
		return NewHTMLTableSource(d, deps.Pages), need(deps.Pages != nil, "page")
	case KindCSV:
		return NewCSVSource(d, deps.Files), need(deps.Files != nil, "file")
	}
	return nil, eris.Errorf("source: %s: no adapter for kind %q", d.Name, d.Kind)
}

// Get returns the adapter for an enabled source.
func (r *Registry) Get(name string) (Source, error) {
	d, ok := r.descs[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q", name)
	}
	if !d.Enabled {
		return nil, eris.Errorf("source: %s is disabled: %s", name, noteOr(d.Note, "no public API"))
	}
	return r.sources[name], nil
}

// Descriptor returns the descriptor for name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	d, ok := r.descs[name]
	return d, ok
}

// Select resolves names to sources in the order given. No names selects
// every enabled source in registration order. Duplicates are dropped.
func (r *Registry) Select(names []string) ([]Source, error) {
	if len(names) == 0 {
		return r.Enabled(), nil
	}
	out := make([]Source, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		s, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Enabled returns the enabled sources in registration order.
func (r *Registry) Enabled() []Source {
	var out []Source
	for _, n := range r.order {
		if s, ok := r.sources[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Disabled returns descriptors of sources that cannot be selected.
func (r *Registry) Disabled() []Descriptor {
	var out []Descriptor
	for _, n := range r.order {
		if d := r.descs[n]; !d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Descriptors returns every descriptor in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.descs[n])
	}
	return out
}

func noteOr(note, def string) string {
	if note == "" {
		return def
	}
	return note
}
