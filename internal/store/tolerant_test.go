package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplanning/lead-scout/internal/model"
)

// failingStore fails every call with err and counts upserts.
type failingStore struct {
	err     error
	upserts int
}

func (f *failingStore) LoadAll(context.Context) ([]model.PersistedLead, error) { return nil, f.err }

func (f *failingStore) Upsert(context.Context, model.ScoredLead) (model.PersistedLead, error) {
	f.upserts++
	return model.PersistedLead{}, f.err
}

func (f *failingStore) SetWorkflowStatus(context.Context, model.LeadKey, string) error { return f.err }

func (f *failingStore) Migrate(context.Context) error { return f.err }

func (f *failingStore) Close() error { return nil }

func TestTolerant_Passthrough(t *testing.T) {
	ctx := context.Background()
	now := t0
	inner := newTestMemory(&now)
	tol := NewTolerant(inner, "memory")

	rec, err := tol.Upsert(ctx, scoredLead("camden", "A", 3, "Pending"))
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowNew, rec.WorkflowStatus)

	all, err := tol.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Empty(t, tol.Drain())
	assert.Same(t, inner, tol.Unwrap())
}

func TestTolerant_LoadDegradesToEmpty(t *testing.T) {
	tol := NewTolerant(&failingStore{err: errors.New("dial tcp: connection refused")}, "postgres")

	all, err := tol.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	ws := tol.Drain()
	require.Len(t, ws, 1)
	assert.Equal(t, model.KindStoreUnavailable, ws[0].Kind)
	assert.Contains(t, ws[0].Message, "store postgres: load: dial tcp: connection refused")
	assert.Contains(t, ws[0].Message, "continuing without stored history")
}

func TestTolerant_UpsertDegradesAndShortCircuits(t *testing.T) {
	ctx := context.Background()
	inner := &failingStore{err: errors.New("401 unauthorized")}
	now := t0
	tol := NewTolerant(inner, "notion")
	tol.now = fixedClock(&now)

	for _, ref := range []string{"A", "B", "C"} {
		rec, err := tol.Upsert(ctx, scoredLead("camden", ref, 4, "Pending"))
		require.NoError(t, err)
		assert.Equal(t, ref, rec.Reference)
		assert.Equal(t, model.WorkflowNew, rec.WorkflowStatus)
		assert.Equal(t, 4, rec.Score)
	}
	assert.Equal(t, 1, inner.upserts, "backend is skipped after the first failure")

	ws := tol.Drain()
	require.Len(t, ws, 1)
	assert.Contains(t, ws[0].Message, "3 lead(s) not persisted")

	// Drain re-arms the backend for the next batch.
	_, err := tol.Upsert(ctx, scoredLead("camden", "D", 4, "Pending"))
	require.NoError(t, err)
	assert.Equal(t, 2, inner.upserts)
}

func TestTolerant_SetWorkflowStatusPassesErrors(t *testing.T) {
	tol := NewTolerant(&failingStore{err: ErrNotFound}, "sqlite")
	err := tol.SetWorkflowStatus(context.Background(), model.LeadKey{}, "Won")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnavailableError(t *testing.T) {
	cause := errors.New("timeout")
	var err error = &UnavailableError{Backend: "notion", Op: "upsert", Err: cause}

	assert.True(t, IsUnavailable(err))
	assert.False(t, IsUnavailable(cause))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store notion: upsert: timeout", err.Error())

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, model.KindStoreUnavailable, ue.Kind())
}
