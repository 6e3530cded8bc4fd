// Package model defines the canonical planning-lead shapes shared by every
// source adapter, the scoring engine, the lead store, and the collaborators
// that export or mail the ranked results.
package model

import (
	"strings"
	"time"
)

// NA is the explicit sentinel for an unknown text field. Canonical leads never
// carry empty text fields so keyword matching downstream is always safe.
const NA = "N/A"

// WorkflowNew is the workflow status given to a lead on first sighting.
const WorkflowNew = "New"

// Priority is the tier derived from a lead's total score.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Label returns the A/B/C label used in exports and the digest.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "A - HIGH PRIORITY"
	case PriorityMedium:
		return "B - MEDIUM"
	default:
		return "C - LOW"
	}
}

// ParsePriority maps a stored priority string back to a Priority. Unknown
// values map to PriorityLow.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// CanonicalLead is a planning application normalized from any source.
type CanonicalLead struct {
	SourceID     string `json:"source_id"`
	Reference    string `json:"reference"`
	Address      string `json:"address"`
	Description  string `json:"description"`
	Applicant    string `json:"applicant"`
	Status       string `json:"status"`
	DateReceived string `json:"date_received"`
	OriginLink   string `json:"origin_link"`
	IsSynthetic  bool   `json:"is_synthetic"`
}

// Normalize fills every empty text field with NA and trims whitespace.
// OriginLink falls back to "#" which the digest renders as a dead link.
func (l CanonicalLead) Normalize() CanonicalLead {
	l.Reference = orNA(l.Reference)
	l.Address = orNA(l.Address)
	l.Description = orNA(l.Description)
	l.Applicant = orNA(l.Applicant)
	l.Status = orNA(l.Status)
	l.DateReceived = orNA(l.DateReceived)
	l.OriginLink = strings.TrimSpace(l.OriginLink)
	if l.OriginLink == "" {
		l.OriginLink = "#"
	}
	return l
}

// Key returns the dedup key (source_id, reference).
func (l CanonicalLead) Key() LeadKey {
	return LeadKey{SourceID: l.SourceID, Reference: l.Reference}
}

// LeadKey uniquely identifies a persisted lead.
type LeadKey struct {
	SourceID  string `json:"source_id"`
	Reference string `json:"reference"`
}

// ScoredLead is a CanonicalLead plus the scoring engine output.
type ScoredLead struct {
	CanonicalLead
	Score    int      `json:"score"`
	Priority Priority `json:"priority"`
	Reasons  []string `json:"reasons"`
}

// ReasonText joins reasons the way exports and the digest display them.
func (s ScoredLead) ReasonText() string {
	return strings.Join(s.Reasons, " | ")
}

// PersistedLead is the durable form of a lead. WorkflowStatus belongs to the
// people working the lead and is never written by the pipeline after insert.
type PersistedLead struct {
	ScoredLead
	WorkflowStatus string    `json:"workflow_status"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return NA
	}
	return s
}
