package store

import (
	"context"
	"sync"
	"time"

	"github.com/maplanning/lead-scout/internal/model"
)

// MemoryStore keeps leads in a slice and finds them by linear scan. It backs
// dry runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	leads []model.PersistedLead
	now   func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]model.PersistedLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.PersistedLead, len(s.leads))
	copy(out, s.leads)
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, lead model.ScoredLead) (model.PersistedLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead.CanonicalLead = lead.Normalize()
	now := s.now().UTC()
	if existing := Find(s.leads, lead.Key()); existing != nil {
		*existing = model.Merge(existing, lead, now)
		return *existing, nil
	}
	rec := model.Merge(nil, lead, now)
	s.leads = append(s.leads, rec)
	return rec, nil
}

func (s *MemoryStore) SetWorkflowStatus(_ context.Context, key model.LeadKey, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := Find(s.leads, key)
	if existing == nil {
		return ErrNotFound
	}
	existing.WorkflowStatus = status
	return nil
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
