package source

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/fetcher"
	"github.com/maplanning/lead-scout/internal/model"
)

// FeedSource reads a weekly-list RSS or Atom feed. Feeds cannot be queried
// by date, so items are filtered locally on their published (or updated)
// time. Item fields map as:
//
//	reference   GUID, then link
//	address     title
//	description description, then content
//	applicant   author name
//	status      first category
//	date        published, then updated
type FeedSource struct {
	desc  Descriptor
	files fetcher.Fetcher
}

// NewFeedSource creates a FeedSource.
func NewFeedSource(d Descriptor, files fetcher.Fetcher) *FeedSource {
	return &FeedSource{desc: d, files: files}
}

// Name implements Source.
func (s *FeedSource) Name() string { return s.desc.Name }

// Fetch implements Source.
func (s *FeedSource) Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error) {
	body, err := s.files.Download(ctx, s.desc.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	defer body.Close() //nolint:errcheck

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s: parse feed", s.desc.Name)
	}

	out := make([]model.CanonicalLead, 0, len(feed.Items))
	for _, it := range feed.Items {
		if len(out) >= w.PageSize {
			break
		}
		pub := itemTime(it)
		if pub.IsZero() || !w.Contains(pub) {
			continue
		}
		out = append(out, s.lead(it, pub))
	}
	return out, nil
}

func (s *FeedSource) lead(it *gofeed.Item, pub time.Time) model.CanonicalLead {
	f := Fields{
		"guid":        it.GUID,
		"link":        it.Link,
		"title":       it.Title,
		"description": it.Description,
		"content":     it.Content,
		"date":        pub.Format(time.DateOnly),
	}
	if it.Author != nil {
		f["author"] = it.Author.Name
	} else if len(it.Authors) > 0 && it.Authors[0] != nil {
		f["author"] = it.Authors[0].Name
	}
	if len(it.Categories) > 0 {
		f["category"] = it.Categories[0]
	}

	l := model.CanonicalLead{
		SourceID:     s.desc.Name,
		Reference:    f.First("guid", "link"),
		Address:      f.First("title"),
		Description:  stripTags(f.First("description", "content")),
		Applicant:    f.First("author"),
		Status:       f.First("category"),
		DateReceived: f.First("date"),
		OriginLink:   strings.TrimSpace(it.Link),
	}
	if l.OriginLink == "" {
		l.OriginLink = s.desc.LinkFor(l.Reference)
	}
	return l.Normalize()
}

func itemTime(it *gofeed.Item) time.Time {
	switch {
	case it.PublishedParsed != nil:
		return *it.PublishedParsed
	case it.UpdatedParsed != nil:
		return *it.UpdatedParsed
	}
	return time.Time{}
}
