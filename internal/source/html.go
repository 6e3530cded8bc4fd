package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
)

// HTMLTableSource reads a council search-results page that lists
// applications in an HTML table. Columns are keyed by their header text,
// folded to snake case ("Application Number" becomes application_number),
// and mapped with the ckan precedence chains. A link in the row becomes the
// origin link.
type HTMLTableSource struct {
	desc    Descriptor
	mapping Mapping
	pages   PageDownloader
}

// NewHTMLTableSource creates an HTMLTableSource.
func NewHTMLTableSource(d Descriptor, pages PageDownloader) *HTMLTableSource {
	return &HTMLTableSource{desc: d, mapping: d.Fields.merge(ckanMapping), pages: pages}
}

// Name implements Source.
func (s *HTMLTableSource) Name() string { return s.desc.Name }

// Fetch implements Source.
func (s *HTMLTableSource) Fetch(ctx context.Context, w Window) ([]model.CanonicalLead, error) {
	body, err := s.pages.DownloadUTF8(ctx, s.desc.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s", s.desc.Name)
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: %s: parse html", s.desc.Name)
	}

	selector := s.desc.Selector
	if selector == "" {
		selector = "table"
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, eris.Errorf("source: %s: no table matches %q", s.desc.Name, selector)
	}

	var headers []string
	table.Find("tr").First().Find("th, td").Each(func(_ int, c *goquery.Selection) {
		headers = append(headers, headerKey(c.Text()))
	})
	if len(headers) == 0 {
		return nil, eris.Errorf("source: %s: results table has no header row", s.desc.Name)
	}

	base, _ := url.Parse(s.desc.URL)
	var records []Fields
	table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		f := Fields{}
		cells.Each(func(i int, c *goquery.Selection) {
			if i < len(headers) && headers[i] != "" {
				f[headers[i]] = collapseSpace(c.Text())
			}
		})
		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			f["link"] = resolve(base, href)
		}
		records = append(records, f)
	})

	return firstInWindow(mapAll(s.desc, s.mapping, records, 0), w), nil
}

func headerKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// stripTags reduces an HTML fragment, as found in feed descriptions, to its
// text.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	if t := collapseSpace(doc.Text()); t != "" {
		return t
	}
	return model.NA
}
