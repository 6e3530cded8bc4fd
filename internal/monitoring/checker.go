package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/config"
)

// Checker runs periodic backlog checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background backlog checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting backlog checker",
		zap.Duration("interval", interval),
		zap.Int("age_days", c.cfg.BacklogAgeDays),
		zap.Int("threshold", c.cfg.BacklogThreshold),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("backlog checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check collects one backlog snapshot and sends any alerts. It returns how
// many alerts were sent.
func (c *Checker) Check(ctx context.Context) int {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.cfg.BacklogAgeDays)
	if err != nil {
		log.Error("monitoring: failed to collect backlog", zap.Error(err))
		return 0
	}

	alerts := c.alerter.EvaluateBacklog(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered", zap.Int("stale", snap.Stale))
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: backlog check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

// NotifyRun alerts on a degraded run. It returns how many alerts were sent.
func NotifyRun(ctx context.Context, a *Alerter, snap *RunSnapshot) int {
	alerts := a.EvaluateRun(snap)
	if len(alerts) == 0 {
		return 0
	}
	return a.SendAlerts(ctx, alerts)
}
