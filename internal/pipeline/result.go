package pipeline

import (
	"time"

	"github.com/maplanning/lead-scout/internal/model"
)

// Request selects what one run fetches and keeps.
type Request struct {
	// Sources names the councils to poll. Empty polls every enabled source.
	Sources []string `json:"sources,omitempty"`

	// LookbackDays is the window size ending now. Values below 1 use 1.
	LookbackDays int `json:"lookback_days"`

	// MinScore drops leads scoring below it.
	MinScore int `json:"min_score"`

	// RefusedOnly keeps only leads whose status mentions "refused".
	RefusedOnly bool `json:"refused_only"`

	// DryRun scores and ranks without writing to the store.
	DryRun bool `json:"dry_run,omitempty"`
}

// Stats counts leads through each stage of a run.
type Stats struct {
	Fetched   int            `json:"fetched"`
	Synthetic int            `json:"synthetic"`
	Qualified int            `json:"qualified"`
	Persisted int            `json:"persisted"`
	BySource  map[string]int `json:"by_source"`
}

// Result is the ranked output of a run plus everything that degraded it.
type Result struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Leads      []model.ScoredLead `json:"leads"`
	Warnings   []model.Warning    `json:"warnings"`
	Stats      Stats              `json:"stats"`
}

// Degraded reports whether any source or the store fell back during the run.
func (r *Result) Degraded() bool {
	return len(r.Warnings) > 0
}

// WarningsOf returns the warnings of kind k.
func (r *Result) WarningsOf(k model.Kind) []model.Warning {
	var out []model.Warning
	for _, w := range r.Warnings {
		if w.Kind == k {
			out = append(out, w)
		}
	}
	return out
}
