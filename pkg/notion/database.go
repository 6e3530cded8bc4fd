package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// MaxPageSize is the largest page size the query endpoint accepts.
const MaxPageSize = 100

// QueryAll fetches every page of a database, following cursors until the
// result set is exhausted. filter may be nil.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    MaxPageSize,
		}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			if filter.PageSize > 0 {
				req.PageSize = filter.PageSize
			}
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
