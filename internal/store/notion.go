package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/pkg/notion"
)

// Notion property names of the lead tracker database. "Status" is the
// stakeholder's workflow column and "Application Status" is the council's.
const (
	propReference   = "Reference"
	propSource      = "Source"
	propAddress     = "Address"
	propDescription = "Description"
	propApplicant   = "Applicant"
	propAppStatus   = "Application Status"
	propDate        = "Date Received"
	propLink        = "Link"
	propSynthetic   = "Synthetic"
	propScore       = "Score"
	propPriority    = "Priority"
	propReasons     = "Reasons"
	propWorkflow    = "Status"
	propFirstSeen   = "First Seen"
	propLastSeen    = "Last Seen"
)

// NotionStore keeps leads in a Notion database shared with the people working
// them. Lookups are a linear scan over every page, which is fine for the
// hundreds to low thousands of rows a weekly run produces.
type NotionStore struct {
	client notion.Client
	dbID   string
	now    func() time.Time

	mu     sync.Mutex
	loaded bool
	pages  []notionLead
}

type notionLead struct {
	pageID string
	lead   model.PersistedLead
}

// NewNotion returns a NotionStore writing to the database dbID.
func NewNotion(client notion.Client, dbID string) *NotionStore {
	return &NotionStore{client: client, dbID: dbID, now: time.Now}
}

// Migrate is a no-op; the database schema is managed in Notion.
func (s *NotionStore) Migrate(_ context.Context) error { return nil }

func (s *NotionStore) Close() error { return nil }

// LoadAll queries every page and refreshes the scan cache used by Upsert.
func (s *NotionStore) LoadAll(ctx context.Context) ([]model.PersistedLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	out := make([]model.PersistedLead, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.lead
	}
	return out, nil
}

// Invalidate drops the scan cache. The next Upsert reloads every page, so
// rows written by another process since the last load are matched.
func (s *NotionStore) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *NotionStore) refresh(ctx context.Context) error {
	pages, err := notion.QueryAll(ctx, s.client, s.dbID, nil)
	if err != nil {
		return eris.Wrap(err, "notion store: load leads")
	}
	s.pages = s.pages[:0]
	for _, p := range pages {
		s.pages = append(s.pages, notionLead{pageID: string(p.ID), lead: parseLeadPage(p)})
	}
	s.loaded = true
	return nil
}

func (s *NotionStore) find(key model.LeadKey) int {
	for i := range s.pages {
		if s.pages[i].lead.Key() == key {
			return i
		}
	}
	return -1
}

// Upsert updates the matching page without touching its Status column, or
// creates a page with Status "New".
func (s *NotionStore) Upsert(ctx context.Context, lead model.ScoredLead) (model.PersistedLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.refresh(ctx); err != nil {
			return model.PersistedLead{}, err
		}
	}

	lead.CanonicalLead = lead.Normalize()
	now := s.now().UTC()

	if i := s.find(lead.Key()); i >= 0 {
		rec := model.Merge(&s.pages[i].lead, lead, now)
		props := pipelineProps(rec)
		if s.pages[i].lead.FirstSeen.IsZero() {
			props[propFirstSeen] = notion.DateProp(rec.FirstSeen)
		}
		_, err := s.client.UpdatePage(ctx, s.pages[i].pageID, &notionapi.PageUpdateRequest{
			Properties: props,
		})
		if err != nil {
			return model.PersistedLead{}, eris.Wrapf(err, "notion store: update %s/%s", lead.SourceID, lead.Reference)
		}
		s.pages[i].lead = rec
		return rec, nil
	}

	rec := model.Merge(nil, lead, now)
	props := pipelineProps(rec)
	props[propWorkflow] = notion.StatusProp(rec.WorkflowStatus)
	props[propFirstSeen] = notion.DateProp(rec.FirstSeen)

	page, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	})
	if err != nil {
		return model.PersistedLead{}, eris.Wrapf(err, "notion store: create %s/%s", lead.SourceID, lead.Reference)
	}
	s.pages = append(s.pages, notionLead{pageID: string(page.ID), lead: rec})
	return rec, nil
}

func (s *NotionStore) SetWorkflowStatus(ctx context.Context, key model.LeadKey, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return err
	}
	i := s.find(key)
	if i < 0 {
		return ErrNotFound
	}
	_, err := s.client.UpdatePage(ctx, s.pages[i].pageID, &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{propWorkflow: notion.StatusProp(status)},
	})
	if err != nil {
		return eris.Wrapf(err, "notion store: set workflow status %s/%s", key.SourceID, key.Reference)
	}
	s.pages[i].lead.WorkflowStatus = status
	return nil
}

// pipelineProps holds only pipeline-owned columns.
func pipelineProps(p model.PersistedLead) notionapi.Properties {
	return notionapi.Properties{
		propReference:   notion.TitleProp(p.Reference),
		propSource:      notion.TextProp(p.SourceID),
		propAddress:     notion.TextProp(p.Address),
		propDescription: notion.TextProp(p.Description),
		propApplicant:   notion.TextProp(p.Applicant),
		propAppStatus:   notion.TextProp(p.Status),
		propDate:        notion.TextProp(p.DateReceived),
		propLink:        notion.URLProp(p.OriginLink),
		propSynthetic:   notion.CheckboxProp(p.IsSynthetic),
		propScore:       notion.NumberProp(float64(p.Score)),
		propPriority:    notion.SelectProp(string(p.Priority)),
		propReasons:     notion.TextProp(p.ReasonText()),
		propLastSeen:    notion.DateProp(p.LastSeen),
	}
}

func parseLeadPage(page notionapi.Page) model.PersistedLead {
	props := page.Properties
	var reasons []string
	if r := notion.ReadText(props, propReasons); r != "" {
		reasons = strings.Split(r, " | ")
	}
	p := model.PersistedLead{
		ScoredLead: model.ScoredLead{
			CanonicalLead: model.CanonicalLead{
				SourceID:     notion.ReadText(props, propSource),
				Reference:    notion.ReadText(props, propReference),
				Address:      notion.ReadText(props, propAddress),
				Description:  notion.ReadText(props, propDescription),
				Applicant:    notion.ReadText(props, propApplicant),
				Status:       notion.ReadText(props, propAppStatus),
				DateReceived: notion.ReadText(props, propDate),
				OriginLink:   notion.ReadText(props, propLink),
				IsSynthetic:  notion.ReadCheckbox(props, propSynthetic),
			},
			Score:    int(notion.ReadNumber(props, propScore)),
			Priority: model.ParsePriority(notion.ReadText(props, propPriority)),
			Reasons:  reasons,
		},
		WorkflowStatus: notion.ReadText(props, propWorkflow),
		FirstSeen:      notion.ReadDate(props, propFirstSeen),
		LastSeen:       notion.ReadDate(props, propLastSeen),
	}
	p.CanonicalLead = p.Normalize()
	if p.WorkflowStatus == "" {
		p.WorkflowStatus = model.WorkflowNew
	}
	return p
}
