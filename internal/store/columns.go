package store

import (
	"time"

	"github.com/maplanning/lead-scout/internal/db"
	"github.com/maplanning/lead-scout/internal/model"
)

const leadsTable = "leads"

// leadColumns is the bind and scan order shared by the SQL backends.
var leadColumns = []string{
	"source_id",
	"reference",
	"address",
	"description",
	"applicant",
	"status",
	"date_received",
	"origin_link",
	"is_synthetic",
	"score",
	"priority",
	"reasons",
	"workflow_status",
	"first_seen",
	"last_seen",
}

// leadUpsert refreshes pipeline-owned columns on conflict; workflow_status
// and first_seen keep whatever the first insert wrote.
var leadUpsert = db.UpsertConfig{
	Table:        leadsTable,
	Columns:      leadColumns,
	ConflictKeys: []string{"source_id", "reference"},
	Preserve:     []string{"workflow_status", "first_seen"},
	Returning:    leadColumns,
}

// leadArgs returns bind values in leadColumns order. reasons is passed in
// already encoded for the backend.
func leadArgs(p model.PersistedLead, reasons any) []any {
	return []any{
		p.SourceID,
		p.Reference,
		p.Address,
		p.Description,
		p.Applicant,
		p.Status,
		p.DateReceived,
		p.OriginLink,
		p.IsSynthetic,
		p.Score,
		string(p.Priority),
		reasons,
		p.WorkflowStatus,
		p.FirstSeen,
		p.LastSeen,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanLead scans one row in leadColumns order. reasons receives the raw
// reasons column for the caller to decode.
func scanLead(row scannable, reasons any) (model.PersistedLead, error) {
	var (
		p        model.PersistedLead
		priority string
	)
	err := row.Scan(
		&p.SourceID,
		&p.Reference,
		&p.Address,
		&p.Description,
		&p.Applicant,
		&p.Status,
		&p.DateReceived,
		&p.OriginLink,
		&p.IsSynthetic,
		&p.Score,
		&priority,
		reasons,
		&p.WorkflowStatus,
		&p.FirstSeen,
		&p.LastSeen,
	)
	p.Priority = model.Priority(priority)
	return p, err
}

// prepare normalizes a fresh lead and builds the row an insert would write.
func prepare(lead model.ScoredLead, now func() time.Time) model.PersistedLead {
	lead.CanonicalLead = lead.Normalize()
	return model.Merge(nil, lead, now().UTC())
}
