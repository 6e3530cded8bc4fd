package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/pipeline"
	"github.com/maplanning/lead-scout/internal/store"
)

// RunSnapshot summarizes how degraded one pipeline run was.
type RunSnapshot struct {
	RunID string `json:"run_id"`

	// Sources counts the sources polled.
	Sources            int      `json:"sources"`
	UnavailableSources []string `json:"unavailable_sources,omitempty"`
	MalformedSources   []string `json:"malformed_sources,omitempty"`
	StoreMessages      []string `json:"store_messages,omitempty"`

	Fetched   int `json:"fetched"`
	Synthetic int `json:"synthetic"`
	Qualified int `json:"qualified"`
	Persisted int `json:"persisted"`

	CollectedAt time.Time `json:"collected_at"`
}

// SnapshotRun extracts a RunSnapshot from a finished run.
func SnapshotRun(res *pipeline.Result) *RunSnapshot {
	snap := &RunSnapshot{
		RunID:       res.RunID,
		Sources:     len(res.Stats.BySource),
		Fetched:     res.Stats.Fetched,
		Synthetic:   res.Stats.Synthetic,
		Qualified:   res.Stats.Qualified,
		Persisted:   res.Stats.Persisted,
		CollectedAt: res.FinishedAt,
	}
	for _, w := range res.Warnings {
		switch w.Kind {
		case model.KindSourceUnavailable:
			snap.UnavailableSources = append(snap.UnavailableSources, w.Source)
		case model.KindMalformedRecord:
			snap.MalformedSources = append(snap.MalformedSources, w.Source)
		case model.KindStoreUnavailable:
			snap.StoreMessages = append(snap.StoreMessages, w.Message)
		}
	}
	return snap
}

// BacklogSnapshot is a point-in-time view of the stored leads.
type BacklogSnapshot struct {
	Total      int            `json:"total"`
	ByWorkflow map[string]int `json:"by_workflow"`
	ByPriority map[string]int `json:"by_priority"`

	// Stale counts leads still in "New" first seen more than AgeDays ago.
	Stale   int `json:"stale"`
	AgeDays int `json:"age_days"`

	// StaleRefs lists up to ten stale references, oldest first.
	StaleRefs []string `json:"stale_refs,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers backlog metrics from the lead store.
type Collector struct {
	store store.LeadStore
	now   func() time.Time
}

// NewCollector creates a new backlog collector.
func NewCollector(st store.LeadStore) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect reads every stored lead and counts the backlog.
func (c *Collector) Collect(ctx context.Context, ageDays int) (*BacklogSnapshot, error) {
	leads, err := c.store.LoadAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load leads")
	}

	now := c.now().UTC()
	snap := &BacklogSnapshot{
		Total:       len(leads),
		ByWorkflow:  make(map[string]int),
		ByPriority:  make(map[string]int),
		AgeDays:     ageDays,
		CollectedAt: now,
	}
	cutoff := now.AddDate(0, 0, -ageDays)

	var stale []model.PersistedLead
	for _, l := range leads {
		snap.ByWorkflow[l.WorkflowStatus]++
		snap.ByPriority[string(l.Priority)]++
		if l.WorkflowStatus == model.WorkflowNew && !l.IsSynthetic && l.FirstSeen.Before(cutoff) {
			stale = append(stale, l)
		}
	}
	snap.Stale = len(stale)

	sort.SliceStable(stale, func(i, j int) bool { return stale[i].FirstSeen.Before(stale[j].FirstSeen) })
	for i := 0; i < len(stale) && i < 10; i++ {
		snap.StaleRefs = append(snap.StaleRefs, stale[i].SourceID+"/"+stale[i].Reference)
	}
	return snap, nil
}
