package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls exponential backoff with jitter.
type RetryConfig struct {
	// MaxAttempts counts the first try. 1 disables retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps a single delay. Default: 10s.
	MaxBackoff time.Duration

	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64

	// JitterFraction randomizes each delay by ±fraction. Default: 0.25.
	JitterFraction float64

	// ShouldRetry overrides IsTransient when set.
	ShouldRetry func(err error) bool

	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig suits council open-data endpoints, which are slow but
// usually recover within seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done. The last error is returned.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = withDefaults(cfg)
	retryable := cfg.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt+1 >= cfg.MaxAttempts {
			return zero, err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

func withDefaults(cfg RetryConfig) RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	d = math.Min(d, float64(cfg.MaxBackoff))
	if cfg.JitterFraction > 0 {
		d += (rand.Float64()*2 - 1) * d * cfg.JitterFraction
	}
	return time.Duration(math.Max(d, 0))
}

// RetryLogger returns an OnRetry callback that logs the source being retried.
func RetryLogger(source string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying source fetch",
			zap.String("source", source),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
