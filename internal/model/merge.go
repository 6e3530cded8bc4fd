package model

import "time"

// Merge folds a freshly scored lead into its persisted record. Pipeline-owned
// fields are refreshed; WorkflowStatus and FirstSeen are kept. A nil existing
// record yields a new record with WorkflowStatus "New".
func Merge(existing *PersistedLead, fresh ScoredLead, now time.Time) PersistedLead {
	fresh.Reasons = append([]string(nil), fresh.Reasons...)

	if existing == nil {
		return PersistedLead{
			ScoredLead:     fresh,
			WorkflowStatus: WorkflowNew,
			FirstSeen:      now,
			LastSeen:       now,
		}
	}

	out := *existing
	out.ScoredLead = fresh
	if out.WorkflowStatus == "" {
		out.WorkflowStatus = WorkflowNew
	}
	if out.FirstSeen.IsZero() {
		out.FirstSeen = now
	}
	out.LastSeen = now
	return out
}
