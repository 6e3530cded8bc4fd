// Package store persists scored leads keyed by (source_id, reference).
//
// Every backend follows the same field-ownership rule: pipeline-owned fields
// are refreshed on each upsert while workflow_status and first_seen, once
// written, are left to the people working the lead.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
)

// ErrNotFound is returned when a lead key has no persisted record.
var ErrNotFound = eris.New("store: lead not found")

// LeadStore defines the persistence interface for qualified leads.
type LeadStore interface {
	// LoadAll returns every persisted lead.
	LoadAll(ctx context.Context) ([]model.PersistedLead, error)
	// Upsert merges a scored lead into its persisted record and returns the
	// stored result.
	Upsert(ctx context.Context, lead model.ScoredLead) (model.PersistedLead, error)
	// SetWorkflowStatus records a stakeholder status change.
	SetWorkflowStatus(ctx context.Context, key model.LeadKey, status string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Invalidator is implemented by stores that cache backend state between
// calls. Invalidate drops that cache so the next call reads the backend.
type Invalidator interface {
	Invalidate()
}

// Find returns the record for key from a loaded slice using a linear scan.
func Find(leads []model.PersistedLead, key model.LeadKey) *model.PersistedLead {
	for i := range leads {
		if leads[i].Key() == key {
			return &leads[i]
		}
	}
	return nil
}
