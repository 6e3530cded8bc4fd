// Package resilience provides retry with backoff and per-source circuit
// breakers for calls to external planning data sources.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets probe calls through to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling through when a breaker is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 3.
	FailureThreshold int

	// ResetTimeout is how long an open circuit waits before probing.
	// Default: 5m.
	ResetTimeout time.Duration

	// HalfOpenMaxProbes is the number of successful probes that close the
	// circuit. Default: 1.
	HalfOpenMaxProbes int

	// OnStateChange runs on every transition, under the breaker lock.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns defaults sized for a daily or
// on-demand pipeline run: a source that fails three runs in a row is
// skipped for five minutes.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  3,
		ResetTimeout:      5 * time.Minute,
		HalfOpenMaxProbes: 1,
	}
}

// CircuitBreaker guards a single source.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	probes      int

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxProbes <= 0 {
		cfg.HalfOpenMaxProbes = def.HalfOpenMaxProbes
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ExecuteVal(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteVal runs fn through cb and returns its value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := cb.allow(); err != nil {
		var zero T
		return zero, err
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

// State returns the current state, reporting half-open once an open
// circuit's reset timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.cooledDown() {
		return CircuitHalfOpen
	}
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probes = 0
	cb.transition(CircuitClosed)
}

func (cb *CircuitBreaker) cooledDown() bool {
	return cb.now().Sub(cb.lastFailure) >= cb.cfg.ResetTimeout
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return nil
	}
	if cb.cooledDown() {
		cb.transition(CircuitHalfOpen)
		return nil
	}
	return ErrCircuitOpen
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		switch cb.state {
		case CircuitHalfOpen:
			cb.probes++
			if cb.probes >= cb.cfg.HalfOpenMaxProbes {
				cb.failures = 0
				cb.probes = 0
				cb.transition(CircuitClosed)
			}
		case CircuitClosed:
			cb.failures = 0
		}
		return
	}

	cb.failures++
	cb.lastFailure = cb.now()
	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.probes = 0
		cb.transition(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

// SourceBreakers lazily holds one breaker per source name.
type SourceBreakers struct {
	cfg CircuitBreakerConfig

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewSourceBreakers creates an empty breaker set.
func NewSourceBreakers(cfg CircuitBreakerConfig) *SourceBreakers {
	return &SourceBreakers{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for source, creating it on first use.
func (sb *SourceBreakers) Get(source string) *CircuitBreaker {
	sb.mu.RLock()
	cb, ok := sb.breakers[source]
	sb.mu.RUnlock()
	if ok {
		return cb
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()
	if cb, ok = sb.breakers[source]; ok {
		return cb
	}
	cb = NewCircuitBreaker(sb.cfg)
	sb.breakers[source] = cb
	return cb
}

// States snapshots every known breaker.
func (sb *SourceBreakers) States() map[string]CircuitState {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	out := make(map[string]CircuitState, len(sb.breakers))
	for name, cb := range sb.breakers {
		out[name] = cb.State()
	}
	return out
}
