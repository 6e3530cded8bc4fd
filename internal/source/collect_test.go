package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/resilience"
)

func TestCollect_Success(t *testing.T) {
	src := &stubSource{name: "camden", leads: []model.CanonicalLead{
		{Reference: "A", Address: "1 Road", Description: "Shop", IsSynthetic: true},
	}}
	d := Descriptor{Name: "camden", Title: "Camden"}

	out := Collect(context.Background(), src, d, fixedWindow(), CollectOptions{MaxRetries: 0})
	require.Len(t, out.Leads, 1)
	assert.False(t, out.Synthetic)
	assert.False(t, out.Leads[0].IsSynthetic)
	assert.Equal(t, "camden", out.Leads[0].SourceID)
	assert.Equal(t, model.NA, out.Leads[0].Applicant)
	assert.Empty(t, out.Warnings)
}

func TestCollect_FailureYieldsSyntheticFallback(t *testing.T) {
	src := &stubSource{name: "bristol", errs: []error{errors.New("invalid character '<'")}}
	d := Descriptor{Name: "bristol", Title: "Bristol"}

	out := Collect(context.Background(), src, d, fixedWindow(), CollectOptions{MaxRetries: 2})
	assert.Equal(t, 1, src.calls, "permanent errors are not retried")
	assert.True(t, out.Synthetic)
	require.Len(t, out.Leads, 3)
	for _, l := range out.Leads {
		assert.True(t, l.IsSynthetic)
	}
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, model.KindSourceUnavailable, out.Warnings[0].Kind)
	assert.Equal(t, "bristol", out.Warnings[0].Source)
}

func TestCollect_RetriesTransient(t *testing.T) {
	src := &stubSource{
		name:  "leeds",
		errs:  []error{resilience.NewTransientError(errors.New("503"), 503)},
		leads: []model.CanonicalLead{{Reference: "L1", Address: "a", Description: "b"}},
	}
	out := Collect(context.Background(), src, Descriptor{Name: "leeds"}, fixedWindow(), CollectOptions{MaxRetries: 2})
	assert.Equal(t, 2, src.calls)
	assert.False(t, out.Synthetic)
	require.Len(t, out.Leads, 1)
}

func TestCollect_TimeoutFallsBack(t *testing.T) {
	src := &blockingSource{name: "slow"}
	out := Collect(context.Background(), src, Descriptor{Name: "slow"}, fixedWindow(), CollectOptions{Timeout: 20 * time.Millisecond})
	assert.True(t, out.Synthetic)
	assert.Len(t, out.Warnings, 1)
}

func TestCollect_OpenBreakerSkipsFetch(t *testing.T) {
	breakers := resilience.NewSourceBreakers(resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	src := &stubSource{name: "camden", errs: []error{errors.New("boom")}}
	opts := CollectOptions{MaxRetries: 0, Breakers: breakers}

	first := Collect(context.Background(), src, Descriptor{Name: "camden"}, fixedWindow(), opts)
	assert.True(t, first.Synthetic)

	second := Collect(context.Background(), src, Descriptor{Name: "camden"}, fixedWindow(), opts)
	assert.True(t, second.Synthetic)
	assert.Equal(t, 1, src.calls)
	assert.Contains(t, second.Warnings[0].Message, "circuit breaker is open")
}

func TestCollect_MalformedWarning(t *testing.T) {
	src := &stubSource{name: "leeds", leads: []model.CanonicalLead{
		{Reference: "ok", Address: "a", Description: "b"},
		{Address: "a"},
	}}
	out := Collect(context.Background(), src, Descriptor{Name: "leeds"}, fixedWindow(), CollectOptions{})
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, model.KindMalformedRecord, out.Warnings[0].Kind)
	assert.Equal(t, "1 of 2 records missing fields filled with N/A (reference=1, description=1)", out.Warnings[0].Message)
	assert.Len(t, out.Leads, 2)
}

func TestUnavailableError(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := &UnavailableError{Source: "camden", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, model.KindSourceUnavailable, err.Kind())
	assert.Contains(t, err.Error(), "camden")

	var ue *UnavailableError
	assert.True(t, errors.As(error(err), &ue))
}

type blockingSource struct{ name string }

func (b *blockingSource) Name() string { return b.name }

func (b *blockingSource) Fetch(ctx context.Context, _ Window) ([]model.CanonicalLead, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNewWindow(t *testing.T) {
	now := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	w := NewWindow(now, 0, 0)
	assert.Equal(t, "2026-10-13", w.StartDate())
	assert.Equal(t, DefaultPageSize, w.PageSize)

	w = NewWindow(now, 14, 50)
	assert.Equal(t, "2026-09-30", w.StartDate())
	assert.True(t, w.Contains(time.Date(2026, 9, 30, 23, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2026-10-05", "2026-10-05T10:00:00Z", "05/10/2026", "5 Oct 2026", "2026-10-05 09:30:00"} {
		got, ok := ParseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, "2026-10-05", got.Format(time.DateOnly), s)
	}
	_, ok := ParseDate("N/A")
	assert.False(t, ok)
}
