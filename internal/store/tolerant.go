package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/model"
)

// Tolerant wraps a LeadStore so an unreachable backend degrades instead of
// failing the run: LoadAll returns no leads and Upsert returns the unsaved
// merge result. Each failure is recorded and handed out by Drain.
//
// After the first failed write, later writes in the same batch skip the
// backend and are only counted. Drain resets that state.
type Tolerant struct {
	inner   LeadStore
	backend string
	now     func() time.Time

	mu       sync.Mutex
	loadErr  *UnavailableError
	writeErr *UnavailableError
	skipped  int
}

// NewTolerant wraps inner. backend names the store in warnings.
func NewTolerant(inner LeadStore, backend string) *Tolerant {
	return &Tolerant{inner: inner, backend: backend, now: time.Now}
}

func (t *Tolerant) LoadAll(ctx context.Context) ([]model.PersistedLead, error) {
	leads, err := t.inner.LoadAll(ctx)
	if err != nil {
		ue := &UnavailableError{Backend: t.backend, Op: "load", Err: err}
		zap.L().Warn("store: load failed, continuing without history",
			zap.String("component", "store"),
			zap.String("backend", t.backend),
			zap.Error(err),
		)
		t.mu.Lock()
		t.loadErr = ue
		t.mu.Unlock()
		return nil, nil
	}
	return leads, nil
}

func (t *Tolerant) Upsert(ctx context.Context, lead model.ScoredLead) (model.PersistedLead, error) {
	t.mu.Lock()
	down := t.writeErr != nil
	if down {
		t.skipped++
	}
	t.mu.Unlock()

	if !down {
		rec, err := t.inner.Upsert(ctx, lead)
		if err == nil {
			return rec, nil
		}
		zap.L().Warn("store: upsert failed, skipping remaining writes",
			zap.String("component", "store"),
			zap.String("backend", t.backend),
			zap.String("source", lead.SourceID),
			zap.String("reference", lead.Reference),
			zap.Error(err),
		)
		t.mu.Lock()
		t.writeErr = &UnavailableError{Backend: t.backend, Op: "upsert", Err: err}
		t.skipped++
		t.mu.Unlock()
	}

	lead.CanonicalLead = lead.Normalize()
	return model.Merge(nil, lead, t.now().UTC()), nil
}

// SetWorkflowStatus is a direct user action, so errors pass through.
func (t *Tolerant) SetWorkflowStatus(ctx context.Context, key model.LeadKey, status string) error {
	return t.inner.SetWorkflowStatus(ctx, key, status)
}

// Invalidate forwards to the wrapped store when it caches.
func (t *Tolerant) Invalidate() {
	if inv, ok := t.inner.(Invalidator); ok {
		inv.Invalidate()
	}
}

func (t *Tolerant) Migrate(ctx context.Context) error { return t.inner.Migrate(ctx) }

func (t *Tolerant) Close() error { return t.inner.Close() }

// Unwrap returns the wrapped store.
func (t *Tolerant) Unwrap() LeadStore { return t.inner }

// Skipped returns how many upserts were not written since the last Drain.
func (t *Tolerant) Skipped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}

// Drain returns the warnings recorded since the last call and re-arms the
// backend for writes.
func (t *Tolerant) Drain() []model.Warning {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []model.Warning
	if t.loadErr != nil {
		out = append(out, model.Warning{
			Kind:    model.KindStoreUnavailable,
			Message: fmt.Sprintf("%s; continuing without stored history", t.loadErr.Error()),
		})
	}
	if t.writeErr != nil {
		out = append(out, model.Warning{
			Kind:    model.KindStoreUnavailable,
			Message: fmt.Sprintf("%s; %d lead(s) not persisted", t.writeErr.Error(), t.skipped),
		})
	}
	t.loadErr, t.writeErr, t.skipped = nil, nil, 0
	return out
}

// IsUnavailable reports whether err is a store availability failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
