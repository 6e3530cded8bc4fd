package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/fetcher"
	"github.com/maplanning/lead-scout/internal/monitoring"
	"github.com/maplanning/lead-scout/internal/pipeline"
	"github.com/maplanning/lead-scout/internal/resilience"
	"github.com/maplanning/lead-scout/internal/source"
	"github.com/maplanning/lead-scout/internal/store"
)

// pipelineEnv holds the store, source registry and engine needed by the
// run, digest and serve commands.
type pipelineEnv struct {
	Store    store.LeadStore
	Registry *source.Registry
	Engine   *pipeline.Engine

	// Alerter is nil when no monitoring webhook is configured.
	Alerter *monitoring.Alerter
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the store, builds the registry and the Engine. Callers
// should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("run"); err != nil {
		return nil, err
	}

	reg, err := initRegistry()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &pipelineEnv{
		Store:    st,
		Registry: reg,
		Engine:   newEngine(reg, st),
	}
	if cfg.Monitoring.WebhookURL != "" {
		env.Alerter = monitoring.NewAlerter(cfg.Monitoring)
	}
	return env, nil
}

// newEngine wires the Engine from config.
func newEngine(reg *source.Registry, st store.LeadStore) *pipeline.Engine {
	opts := pipeline.Options{
		MaxConcurrentSources: cfg.Pipeline.MaxConcurrentSources,
		SourceTimeout:        secs(cfg.Pipeline.SourceTimeoutSecs),
		MaxRetries:           cfg.Fetch.MaxRetries,
		PageSize:             cfg.Fetch.PageSize,
		PersistSynthetic:     cfg.Pipeline.PersistSynthetic,
		StoreBackend:         cfg.Store.Driver,
	}
	options := []pipeline.Option{
		pipeline.WithBreakers(resilience.NewSourceBreakers(
			resilience.CircuitFromSettings(cfg.Pipeline.BreakerThreshold, cfg.Pipeline.BreakerResetSecs),
		)),
	}
	if cfg.Store.LockPath != "" && cfg.Store.Driver != store.DriverMemory {
		options = append(options, pipeline.WithLock(store.NewFileLock(cfg.Store.LockPath)))
	}
	return pipeline.New(reg, st, opts, options...)
}

// initRegistry builds the immutable source registry from the built-in
// descriptors or sources.file.
func initRegistry() (*source.Registry, error) {
	descs := source.DefaultDescriptors()
	if cfg.Sources.File != "" {
		var err error
		descs, err = source.LoadDescriptors(cfg.Sources.File)
		if err != nil {
			return nil, err
		}
		zap.L().Info("loaded source descriptors",
			zap.String("file", cfg.Sources.File),
			zap.Int("sources", len(descs)),
		)
	}

	timeout := secs(cfg.Fetch.TimeoutSecs)
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    timeout,
		HostLimits: fetcher.DefaultHostLimits(),
	})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout})

	reg, err := source.NewRegistry(descs, source.NewDeps(httpFetcher, ftpFetcher))
	if err != nil {
		return nil, eris.Wrap(err, "build source registry")
	}
	return reg, nil
}

// initStore opens the configured lead store and runs its migration.
func initStore(ctx context.Context) (store.LeadStore, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
		NotionToken: cfg.Notion.Token,
		NotionDB:    cfg.Notion.LeadDB,
	})
}

// defaultSources applies sources.enabled when a request names none.
func defaultSources(names []string) []string {
	if len(names) > 0 {
		return names
	}
	return cfg.Sources.Enabled
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
