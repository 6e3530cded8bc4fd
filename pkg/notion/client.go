// Package notion wraps the Notion API for the shared lead tracker database.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultRPS is Notion's documented average request rate.
const DefaultRPS = 3

// Client defines the Notion API operations used by the lead store.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default rate limit. rps <= 0 disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type notionClient struct {
	inner   *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a throttled Notion client for the given integration token.
func NewClient(token string, opts ...ClientOption) Client {
	c := &notionClient{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(DefaultRPS, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "notion: rate limit")
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.inner.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.inner.Page.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page")
	}
	return page, nil
}

func (c *notionClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.inner.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: update page %s", pageID)
	}
	return page, nil
}
