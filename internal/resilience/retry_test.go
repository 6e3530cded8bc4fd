package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestDoVal_FirstAttempt(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransient(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("busy"), 503)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDoVal_StopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(5), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("bad json")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return NewTransientError(errors.New("down"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, fastRetry(5), func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("down"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomShouldRetry(t *testing.T) {
	calls := 0
	cfg := fastRetry(4)
	cfg.ShouldRetry = func(error) bool { return true }
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestBackoff_CappedWithoutJitter(t *testing.T) {
	cfg := withDefaults(RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2,
	})
	cfg.JitterFraction = 0

	assert.Equal(t, 100*time.Millisecond, backoff(0, cfg))
	assert.Equal(t, 400*time.Millisecond, backoff(2, cfg))
	assert.Equal(t, time.Second, backoff(10, cfg))
}

func TestRetryFromSettings(t *testing.T) {
	cfg := RetryFromSettings(0, "camden")
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.NotNil(t, cfg.OnRetry)

	cfg = RetryFromSettings(-1, "camden")
	assert.Equal(t, 3, cfg.MaxAttempts)

	cfg = RetryFromSettings(4, "leeds")
	assert.Equal(t, 5, cfg.MaxAttempts)
}
