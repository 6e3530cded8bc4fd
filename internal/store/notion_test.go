package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/pkg/notion"
)

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *mockNotionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func leadPage(id, source, ref, workflow string, score int) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			propReference: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: ref}}},
			propSource:    &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: source}}},
			propAddress:   &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "1 High Street"}}},
			propScore:     &notionapi.NumberProperty{Number: float64(score)},
			propPriority:  &notionapi.SelectProperty{Select: notionapi.Option{Name: "Medium"}},
			propReasons:   &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "company applicant | commercial project"}}},
			propWorkflow:  &notionapi.StatusProperty{Status: notionapi.Status{Name: workflow}},
			propFirstSeen: notion.DateProp(t0),
		},
	}
}

func newTestNotionStore(c notion.Client) *NotionStore {
	now := t1
	s := NewNotion(c, "lead-db")
	s.now = fixedClock(&now)
	return s
}

func TestNotionStore_LoadAll(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "lead-db", mock.Anything).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{leadPage("p1", "camden", "2026/1/P", "Contacted", 5)},
	}, nil).Once()

	s := newTestNotionStore(mc)
	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	l := all[0]
	assert.Equal(t, "camden", l.SourceID)
	assert.Equal(t, "2026/1/P", l.Reference)
	assert.Equal(t, "1 High Street", l.Address)
	assert.Equal(t, model.NA, l.Applicant)
	assert.Equal(t, "#", l.OriginLink)
	assert.Equal(t, 5, l.Score)
	assert.Equal(t, model.PriorityMedium, l.Priority)
	assert.Equal(t, []string{"company applicant", "commercial project"}, l.Reasons)
	assert.Equal(t, "Contacted", l.WorkflowStatus)
	assert.True(t, t0.Equal(l.FirstSeen))
	mc.AssertExpectations(t)
}

func TestNotionStore_UpsertUpdatesWithoutStatus(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "lead-db", mock.Anything).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{leadPage("p1", "camden", "2026/1/P", "Contacted", 4)},
	}, nil).Once()
	mc.On("UpdatePage", ctx, "p1", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		_, hasStatus := req.Properties[propWorkflow]
		_, hasFirstSeen := req.Properties[propFirstSeen]
		return !hasStatus && !hasFirstSeen &&
			notion.ReadNumber(req.Properties, propScore) == 6 &&
			notion.ReadText(req.Properties, propAppStatus) == "Refused"
	})).Return(&notionapi.Page{ID: "p1"}, nil).Once()

	s := newTestNotionStore(mc)
	rec, err := s.Upsert(ctx, scoredLead("camden", "2026/1/P", 6, "Refused"))
	require.NoError(t, err)
	assert.Equal(t, "Contacted", rec.WorkflowStatus)
	assert.True(t, t0.Equal(rec.FirstSeen))
	assert.Equal(t, t1, rec.LastSeen)
	mc.AssertExpectations(t)
}

func TestNotionStore_UpsertCreatesWithNewStatus(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "lead-db", mock.Anything).Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == "lead-db" &&
			notion.ReadText(req.Properties, propWorkflow) == model.WorkflowNew &&
			notion.ReadText(req.Properties, propReference) == "26/001" &&
			notion.ReadText(req.Properties, propSource) == "leeds"
	})).Return(&notionapi.Page{ID: "p-new"}, nil).Once()

	s := newTestNotionStore(mc)
	rec, err := s.Upsert(ctx, scoredLead("leeds", "26/001", 3, "Pending"))
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowNew, rec.WorkflowStatus)

	// The created page joins the scan cache so a repeat upsert updates it.
	mc.On("UpdatePage", ctx, "p-new", mock.Anything).Return(&notionapi.Page{ID: "p-new"}, nil).Once()
	again, err := s.Upsert(ctx, scoredLead("leeds", "26/001", 3, "Pending"))
	require.NoError(t, err)
	assert.Equal(t, rec, again)
	mc.AssertExpectations(t)
}

func TestNotionStore_UpsertLoadError(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "lead-db", mock.Anything).Return(nil, assert.AnError).Once()

	s := newTestNotionStore(mc)
	_, err := s.Upsert(ctx, scoredLead("leeds", "26/001", 3, "Pending"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion store: load leads")
}

func TestNotionStore_SetWorkflowStatus(t *testing.T) {
	mc := new(mockNotionClient)
	ctx := context.Background()
	mc.On("QueryDatabase", ctx, "lead-db", mock.Anything).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{leadPage("p1", "camden", "2026/1/P", "New", 4)},
	}, nil)
	mc.On("UpdatePage", ctx, "p1", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		return len(req.Properties) == 1 && notion.ReadText(req.Properties, propWorkflow) == "Contacted"
	})).Return(&notionapi.Page{ID: "p1"}, nil).Once()

	s := newTestNotionStore(mc)
	require.NoError(t, s.SetWorkflowStatus(ctx, model.LeadKey{SourceID: "camden", Reference: "2026/1/P"}, "Contacted"))

	err := s.SetWorkflowStatus(ctx, model.LeadKey{SourceID: "camden", Reference: "nope"}, "Contacted")
	assert.ErrorIs(t, err, ErrNotFound)
	mc.AssertExpectations(t)
}

// fakeNotionDB is an in-memory database that several clients can share.
type fakeNotionDB struct {
	mu      sync.Mutex
	pages   []notionapi.Page
	creates int
}

func (f *fakeNotionDB) QueryDatabase(_ context.Context, _ string, _ *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &notionapi.DatabaseQueryResponse{Results: append([]notionapi.Page(nil), f.pages...)}, nil
}

func (f *fakeNotionDB) CreatePage(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	props := notionapi.Properties{}
	for k, v := range req.Properties {
		props[k] = v
	}
	page := notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("p%d", f.creates)), Properties: props}
	f.pages = append(f.pages, page)
	return &page, nil
}

func (f *fakeNotionDB) UpdatePage(_ context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pages {
		if string(f.pages[i].ID) != pageID {
			continue
		}
		for k, v := range req.Properties {
			f.pages[i].Properties[k] = v
		}
		page := f.pages[i]
		return &page, nil
	}
	return nil, fmt.Errorf("page %s not found", pageID)
}

func (f *fakeNotionDB) rows(key model.LeadKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pages {
		if parseLeadPage(p).Key() == key {
			n++
		}
	}
	return n
}

func TestNotionStore_InvalidateSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	db := &fakeNotionDB{}
	server := newTestNotionStore(db)
	cron := newTestNotionStore(db)

	_, err := server.Upsert(ctx, scoredLead("camden", "A/1", 3, "Pending"))
	require.NoError(t, err)
	_, err = cron.Upsert(ctx, scoredLead("camden", "B/2", 4, "Refused"))
	require.NoError(t, err)

	server.Invalidate()
	rec, err := server.Upsert(ctx, scoredLead("camden", "B/2", 5, "Refused"))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Score)

	assert.Equal(t, 1, db.rows(model.LeadKey{SourceID: "camden", Reference: "B/2"}))
	assert.Equal(t, 2, db.creates)
}

func TestTolerant_InvalidateForwards(t *testing.T) {
	ctx := context.Background()
	db := &fakeNotionDB{}
	inner := newTestNotionStore(db)
	tol := NewTolerant(inner, "notion")

	_, err := tol.Upsert(ctx, scoredLead("leeds", "26/001", 3, "Pending"))
	require.NoError(t, err)
	assert.True(t, inner.loaded)

	tol.Invalidate()
	assert.False(t, inner.loaded)

	// Stores without a cache ignore it.
	NewTolerant(&failingStore{}, "memory").Invalidate()
}
