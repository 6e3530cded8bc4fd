// Package digest renders the weekly lead digest email and sends it.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/maplanning/lead-scout/internal/model"
)

const (
	// DefaultTopK is how many leads a digest shows.
	DefaultTopK = 5

	// DefaultMinScore is the digest's own qualification threshold.
	DefaultMinScore = 2

	// descriptionLimit caps descriptions, in runes.
	descriptionLimit = 200

	researchBase       = "https://www.google.com/search"
	companiesHouseBase = "https://find-and-update.company-information.service.gov.uk/search/companies"
)

// Select keeps leads scoring at least minScore and returns the first topK.
// leads must already be ranked. topK <= 0 means DefaultTopK.
func Select(leads []model.ScoredLead, minScore, topK int) []model.ScoredLead {
	if topK <= 0 {
		topK = DefaultTopK
	}
	out := make([]model.ScoredLead, 0, topK)
	for _, l := range leads {
		if len(out) == topK {
			break
		}
		if l.Score >= minScore {
			out = append(out, l)
		}
	}
	return out
}

// Options controls the digest header.
type Options struct {
	// WeekEnding is printed in the header. Zero uses time.Now.
	WeekEnding time.Time

	// Origin names where the leads came from, e.g. "London Planning Datahub".
	Origin string
}

// Subject returns the email subject for n leads.
func Subject(n int) string {
	return fmt.Sprintf("Weekly Lead Digest - %d Qualified Opportunities", n)
}

// ResearchURL is a web search for the applicant's contact details.
func ResearchURL(applicant string) string {
	q := url.Values{"q": {applicant + " UK contact architect developer"}}
	return researchBase + "?" + q.Encode()
}

// CompaniesHouseURL searches the Companies House register for applicant.
func CompaniesHouseURL(applicant string) string {
	q := url.Values{"q": {applicant}}
	return companiesHouseBase + "?" + q.Encode()
}

// Truncate shortens s to limit runes and marks the cut with "...".
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimRight(string(r[:limit]), " ") + "..."
}

type leadView struct {
	Rank           int
	Label          string
	Class          string
	Score          int
	Address        string
	Applicant      string
	Description    string
	Status         string
	Reasons        string
	Synthetic      bool
	Link           string
	ResearchURL    string
	CompaniesHouse string
}

type pageView struct {
	WeekEnding string
	Origin     string
	Leads      []leadView
}

// Render produces a self-contained HTML document for leads, in the order
// given. Empty input renders a short notice instead of lead blocks.
func Render(leads []model.ScoredLead, opts Options) (string, error) {
	week := opts.WeekEnding
	if week.IsZero() {
		week = time.Now()
	}
	page := pageView{
		WeekEnding: week.Format("January 02, 2006"),
		Origin:     opts.Origin,
		Leads:      make([]leadView, 0, len(leads)),
	}
	for i, l := range leads {
		page.Leads = append(page.Leads, leadView{
			Rank:           i + 1,
			Label:          l.Priority.Label(),
			Class:          priorityClass(l.Priority),
			Score:          l.Score,
			Address:        l.Address,
			Applicant:      l.Applicant,
			Description:    Truncate(l.Description, descriptionLimit),
			Status:         l.Status,
			Reasons:        l.ReasonText(),
			Synthetic:      l.IsSynthetic,
			Link:           l.OriginLink,
			ResearchURL:    ResearchURL(l.Applicant),
			CompaniesHouse: CompaniesHouseURL(l.Applicant),
		})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page); err != nil {
		return "", eris.Wrap(err, "digest: render")
	}
	return buf.String(), nil
}

func priorityClass(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "priority-a"
	case model.PriorityMedium:
		return "priority-b"
	default:
		return "priority-c"
	}
}

var pageTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Arial, sans-serif; }
.lead { border: 1px solid #ddd; padding: 15px; margin: 15px 0; border-radius: 5px; }
.priority-a { border-left: 5px solid #28a745; }
.priority-b { border-left: 5px solid #ffc107; }
.priority-c { border-left: 5px solid #adb5bd; }
.score { background: #007bff; color: white; padding: 5px 10px; border-radius: 3px; display: inline-block; }
.button { background: #007bff; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block; margin: 5px 5px 5px 0; }
.reasons { color: #666; font-size: 0.9em; }
.synthetic { color: #b00; font-size: 0.9em; }
</style>
</head>
<body>
<h2>Weekly Lead Digest - Top Opportunities</h2>
<p><strong>Week ending:</strong> <span class="week-ending">{{.WeekEnding}}</span></p>
{{- if .Leads}}
<p>Here are your top {{len .Leads}} qualified leads{{if .Origin}} from {{.Origin}}{{end}}:</p>
<hr>
{{- range .Leads}}
<div class="lead {{.Class}}">
<h3>{{.Rank}}. {{.Label}} <span class="score">Score: {{.Score}}</span></h3>
{{- if .Synthetic}}
<p class="synthetic">Placeholder lead: the council source was unavailable.</p>
{{- end}}
<p><strong>Address:</strong> {{.Address}}</p>
<p><strong>Applicant:</strong> {{.Applicant}}</p>
<p><strong>Description:</strong> <span class="description">{{.Description}}</span></p>
<p><strong>Status:</strong> {{.Status}}</p>
<p class="reasons"><strong>Why this scored high:</strong> {{.Reasons}}</p>
<a href="{{.Link}}" class="button view">View Application</a>
<a href="{{.ResearchURL}}" class="button research">Research Contact</a>
<a href="{{.CompaniesHouse}}" class="button companies-house">Companies House</a>
</div>
{{- end}}
{{- else}}
<p class="empty">No qualified leads found this week.</p>
{{- end}}
<hr>
<p style="color: #666; font-size: 0.9em;">Automated digest from the lead sourcing engine.</p>
</body>
</html>
`))
