package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSourceUnavailable AlertType = "source_unavailable"
	AlertStoreUnavailable  AlertType = "store_unavailable"
	AlertMalformedRecords  AlertType = "malformed_records"
	AlertLeadBacklog       AlertType = "lead_backlog"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter turns run and backlog snapshots into alerts and sends them via
// webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// EvaluateRun returns alerts for a degraded run.
func (a *Alerter) EvaluateRun(snap *RunSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if n := len(snap.UnavailableSources); n > 0 {
		severity := "medium"
		if n >= snap.Sources {
			severity = "high"
		}
		alerts = append(alerts, Alert{
			Type:     AlertSourceUnavailable,
			Severity: severity,
			Message: fmt.Sprintf(
				"%d of %d source(s) unavailable, synthetic leads substituted: %s",
				n, snap.Sources, strings.Join(snap.UnavailableSources, ", "),
			),
			Details: map[string]any{
				"run_id":    snap.RunID,
				"sources":   snap.UnavailableSources,
				"synthetic": snap.Synthetic,
			},
			Timestamp: now,
		})
	}

	if len(snap.StoreMessages) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStoreUnavailable,
			Severity: "high",
			Message: fmt.Sprintf(
				"lead store unavailable, %d of %d qualified lead(s) persisted: %s",
				snap.Persisted, snap.Qualified, strings.Join(snap.StoreMessages, "; "),
			),
			Details: map[string]any{
				"run_id":    snap.RunID,
				"qualified": snap.Qualified,
				"persisted": snap.Persisted,
			},
			Timestamp: now,
		})
	}

	if a.cfg.AlertOnMalformed && len(snap.MalformedSources) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertMalformedRecords,
			Severity: "low",
			Message: fmt.Sprintf(
				"records with missing fields from %s",
				strings.Join(snap.MalformedSources, ", "),
			),
			Details: map[string]any{
				"run_id":  snap.RunID,
				"sources": snap.MalformedSources,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// EvaluateBacklog alerts when too many leads have gone unworked.
func (a *Alerter) EvaluateBacklog(snap *BacklogSnapshot) []Alert {
	if a.cfg.BacklogThreshold <= 0 || snap.Stale < a.cfg.BacklogThreshold {
		return nil
	}
	return []Alert{{
		Type:     AlertLeadBacklog,
		Severity: "medium",
		Message: fmt.Sprintf(
			"%d lead(s) still New after %d day(s) (threshold %d)",
			snap.Stale, snap.AgeDays, a.cfg.BacklogThreshold,
		),
		Details: map[string]any{
			"stale":      snap.Stale,
			"threshold":  a.cfg.BacklogThreshold,
			"total":      snap.Total,
			"oldest":     snap.StaleRefs,
			"by_status":  snap.ByWorkflow,
			"by_quality": snap.ByPriority,
		},
		Timestamp: time.Now().UTC(),
	}}
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
