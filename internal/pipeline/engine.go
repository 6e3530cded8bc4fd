// Package pipeline runs the lead qualification batch: poll the selected
// councils, score every application, keep the qualified ones, rank them and
// merge them into the lead store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/resilience"
	"github.com/maplanning/lead-scout/internal/scoring"
	"github.com/maplanning/lead-scout/internal/source"
	"github.com/maplanning/lead-scout/internal/store"
)

// Options tunes an Engine.
type Options struct {
	// MaxConcurrentSources bounds adapter fan-out. Default: 4.
	MaxConcurrentSources int

	// SourceTimeout bounds one source including retries. Default: 45s.
	SourceTimeout time.Duration

	// MaxRetries counts retries per source on transient errors.
	MaxRetries int

	// PageSize is the per-source record cap. Default: source.DefaultPageSize.
	PageSize int

	// PersistSynthetic also writes fallback leads to the store.
	PersistSynthetic bool

	// StoreBackend names the store in warnings.
	StoreBackend string
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentSources <= 0 {
		o.MaxConcurrentSources = 4
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = 45 * time.Second
	}
	if o.PageSize <= 0 {
		o.PageSize = source.DefaultPageSize
	}
	if o.StoreBackend == "" {
		o.StoreBackend = "store"
	}
	return o
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLock guards the upsert phase with a single-writer file lock.
func WithLock(l *store.FileLock) Option {
	return func(e *Engine) { e.lock = l }
}

// WithBreakers shares circuit breakers across runs.
func WithBreakers(b *resilience.SourceBreakers) Option {
	return func(e *Engine) { e.breakers = b }
}

// WithRubric replaces the default scoring rubric.
func WithRubric(r scoring.Rubric) Option {
	return func(e *Engine) { e.rubric = r }
}

// WithClock sets the time source for windows and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine orchestrates runs against an immutable source registry and a store.
// Runs on one Engine are serialized.
type Engine struct {
	registry *source.Registry
	store    *store.Tolerant
	breakers *resilience.SourceBreakers
	lock     *store.FileLock
	rubric   scoring.Rubric
	opts     Options
	now      func() time.Time

	mu sync.Mutex
}

// New builds an Engine. st is wrapped so store failures degrade the run
// instead of failing it.
func New(reg *source.Registry, st store.LeadStore, opts Options, options ...Option) *Engine {
	opts = opts.withDefaults()
	tol, ok := st.(*store.Tolerant)
	if !ok {
		tol = store.NewTolerant(st, opts.StoreBackend)
	}
	e := &Engine{
		registry: reg,
		store:    tol,
		breakers: resilience.NewSourceBreakers(resilience.DefaultCircuitBreakerConfig()),
		rubric:   scoring.DefaultRubric(),
		opts:     opts,
		now:      time.Now,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Registry returns the engine's source registry.
func (e *Engine) Registry() *source.Registry { return e.registry }

// Store returns the engine's degrade-wrapped store.
func (e *Engine) Store() *store.Tolerant { return e.store }

// Run executes one batch. Source and store failures are reported as
// warnings on the result; only an invalid request returns an error.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.LookbackDays < 0 {
		return nil, eris.Errorf("pipeline: lookback_days must be >= 0, got %d", req.LookbackDays)
	}
	sources, err := e.registry.Select(req.Sources)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: select sources")
	}
	if len(sources) == 0 {
		return nil, eris.New("pipeline: no enabled sources")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: e.now().UTC(),
		Stats:     Stats{BySource: make(map[string]int, len(sources))},
	}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", res.RunID))
	log.Info("pipeline: run starting",
		zap.Int("sources", len(sources)),
		zap.Int("lookback_days", req.LookbackDays),
		zap.Int("min_score", req.MinScore),
		zap.Bool("refused_only", req.RefusedOnly),
	)

	w := source.NewWindow(res.StartedAt, req.LookbackDays, e.opts.PageSize)
	outcomes := e.collect(ctx, sources, w)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run cancelled")
	}

	var fetched []model.CanonicalLead
	for _, o := range outcomes {
		fetched = append(fetched, o.Leads...)
		res.Warnings = append(res.Warnings, o.Warnings...)
		res.Stats.BySource[o.Source] = len(o.Leads)
		if o.Synthetic {
			res.Stats.Synthetic += len(o.Leads)
		}
	}
	res.Stats.Fetched = len(fetched)

	res.Leads = Qualify(e.rubric.ScoreAll(fetched), req.MinScore, req.RefusedOnly)
	Rank(res.Leads)
	res.Stats.Qualified = len(res.Leads)

	if !req.DryRun {
		res.Stats.Persisted = e.persist(ctx, res)
	}
	res.FinishedAt = e.now().UTC()

	log.Info("pipeline: run complete",
		zap.Int("fetched", res.Stats.Fetched),
		zap.Int("synthetic", res.Stats.Synthetic),
		zap.Int("qualified", res.Stats.Qualified),
		zap.Int("persisted", res.Stats.Persisted),
		zap.Int("warnings", len(res.Warnings)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

// collect polls sources concurrently. Each outcome lands at its selection
// index so concatenation preserves fetch order.
func (e *Engine) collect(ctx context.Context, sources []source.Source, w source.Window) []source.Outcome {
	outcomes := make([]source.Outcome, len(sources))
	copts := source.CollectOptions{
		Timeout:    e.opts.SourceTimeout,
		MaxRetries: e.opts.MaxRetries,
		Breakers:   e.breakers,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrentSources)
	for i, src := range sources {
		g.Go(func() error {
			d, _ := e.registry.Descriptor(src.Name())
			outcomes[i] = source.Collect(gctx, src, d, w, copts)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// persist merges qualified leads into the store and returns how many were
// written. Synthetic leads are skipped unless configured otherwise.
func (e *Engine) persist(ctx context.Context, res *Result) int {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", res.RunID))

	if e.lock != nil {
		if err := e.lock.Acquire(); err != nil {
			msg := fmt.Sprintf("writer lock %s: %v; leads not persisted", e.lock.Path(), err)
			if !errors.Is(err, store.ErrLocked) {
				log.Warn("pipeline: lock failed", zap.Error(err))
			}
			res.Warnings = append(res.Warnings, model.Warning{Kind: model.KindStoreUnavailable, Message: msg})
			return 0
		}
		defer func() {
			if err := e.lock.Release(); err != nil {
				log.Warn("pipeline: release lock", zap.Error(err))
			}
		}()
	}

	// Other writers may have added rows since this store last loaded.
	e.store.Invalidate()

	attempted := 0
	for _, l := range res.Leads {
		if l.IsSynthetic && !e.opts.PersistSynthetic {
			continue
		}
		if _, err := e.store.Upsert(ctx, l); err != nil {
			log.Warn("pipeline: upsert", zap.String("reference", l.Reference), zap.Error(err))
			continue
		}
		attempted++
	}
	persisted := attempted - e.store.Skipped()
	res.Warnings = append(res.Warnings, e.store.Drain()...)
	return persisted
}
