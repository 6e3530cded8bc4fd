package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/pipeline"
	"github.com/maplanning/lead-scout/internal/source"
)

// formatLeads writes ranked leads as a table. Synthetic leads are starred.
func formatLeads(out io.Writer, leads []model.ScoredLead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tPRIORITY\tSCORE\tSOURCE\tREFERENCE\tADDRESS")
	_, _ = fmt.Fprintln(w, "----\t--------\t-----\t------\t---------\t-------")

	for i, l := range leads {
		src := l.SourceID
		if l.IsSynthetic {
			src += "*"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			i+1,
			l.Priority,
			l.Score,
			src,
			l.Reference,
			truncate(l.Address, 40),
		)
	}
	_ = w.Flush()
}

// formatWarnings writes one line per warning.
func formatWarnings(out io.Writer, warnings []model.Warning) {
	if len(warnings) == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "\nWarnings (%d):\n", len(warnings))
	for _, wr := range warnings {
		_, _ = fmt.Fprintf(out, "  %s\n", wr.String())
	}
}

// formatRunSummary writes the run counters.
func formatRunSummary(out io.Writer, res *pipeline.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Fetched:\t%d\n", res.Stats.Fetched)
	if res.Stats.Synthetic > 0 {
		_, _ = fmt.Fprintf(w, "  Synthetic:\t%d (* in table)\n", res.Stats.Synthetic)
	}
	_, _ = fmt.Fprintf(w, "Qualified:\t%d\n", res.Stats.Qualified)
	_, _ = fmt.Fprintf(w, "Persisted:\t%d\n", res.Stats.Persisted)
	_, _ = fmt.Fprintf(w, "Elapsed:\t%s\n", res.FinishedAt.Sub(res.StartedAt).Round(1e6))
	_ = w.Flush()
}

// formatStoredLeads writes persisted leads with their workflow status.
func formatStoredLeads(out io.Writer, leads []model.PersistedLead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tREFERENCE\tSCORE\tPRIORITY\tWORKFLOW\tFIRST_SEEN\tAPPLICANT")
	_, _ = fmt.Fprintln(w, "------\t---------\t-----\t--------\t--------\t----------\t---------")

	for _, l := range leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			l.SourceID,
			l.Reference,
			l.Score,
			l.Priority,
			l.WorkflowStatus,
			l.FirstSeen.Format("2006-01-02"),
			truncate(l.Applicant, 30),
		)
	}
	_ = w.Flush()
}

// formatSources writes every configured source with its availability.
func formatSources(out io.Writer, descs []source.Descriptor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTITLE\tKIND\tSTATUS\tNOTE")
	_, _ = fmt.Fprintln(w, "----\t-----\t----\t------\t----")

	for _, d := range descs {
		status := "enabled"
		if !d.Enabled {
			status = "unavailable"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.DisplayName(), d.Kind, status, d.Note)
	}
	_ = w.Flush()
}

// filterStored keeps stored leads matching workflow (if set) and minScore,
// ordered by score descending, then limited.
func filterStored(leads []model.PersistedLead, workflow string, minScore, limit int) []model.PersistedLead {
	out := make([]model.PersistedLead, 0, len(leads))
	for _, l := range leads {
		if workflow != "" && l.WorkflowStatus != workflow {
			continue
		}
		if l.Score < minScore {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// scoredOf drops the persistence fields.
func scoredOf(leads []model.PersistedLead) []model.ScoredLead {
	out := make([]model.ScoredLead, len(leads))
	for i, l := range leads {
		out[i] = l.ScoredLead
	}
	return out
}

// truncate shortens s to n runes with a trailing "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
