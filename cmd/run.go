package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/export"
	"github.com/maplanning/lead-scout/internal/monitoring"
	"github.com/maplanning/lead-scout/internal/pipeline"
)

var (
	runSources     []string
	runDays        int
	runMinScore    int
	runRefusedOnly bool
	runExport      string
	runOut         string
	runDryRun      bool
	runJSON        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score and rank planning leads",
	Long: "Polls the selected councils for applications received in the lookback window, " +
		"scores and ranks them, and upserts the qualified leads into the lead store.",
	Example: `  lead-scout run
  lead-scout run --sources london,camden --days 7 --min-score 5
  lead-scout run --refused-only --export xlsx --out leads.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req := requestFromFlags(cmd)

		var format export.Format
		if runExport != "" || runOut != "" {
			f, err := exportFormat(runExport, runOut)
			if err != nil {
				return err
			}
			format = f
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", res.RunID),
			zap.Int("fetched", res.Stats.Fetched),
			zap.Int("qualified", res.Stats.Qualified),
			zap.Int("persisted", res.Stats.Persisted),
			zap.Int("warnings", len(res.Warnings)),
		)

		if res.Degraded() && env.Alerter != nil {
			monitoring.NotifyRun(ctx, env.Alerter, monitoring.SnapshotRun(res))
		}

		if format != "" {
			path := runOut
			if path == "" {
				path = export.FileName(time.Now(), format)
			}
			if err := export.WriteFile(path, res.Leads); err != nil {
				return err
			}
			zap.L().Info("leads exported", zap.String("path", path), zap.Int("leads", len(res.Leads)))
		}

		return printResult(os.Stdout, res, runJSON)
	},
}

// requestFromFlags builds the run request from config defaults, letting
// explicitly set flags win.
func requestFromFlags(cmd *cobra.Command) pipeline.Request {
	req := pipeline.Request{
		Sources:      defaultSources(runSources),
		LookbackDays: cfg.Pipeline.LookbackDays,
		MinScore:     cfg.Pipeline.MinScore,
		RefusedOnly:  cfg.Pipeline.RefusedOnly,
		DryRun:       runDryRun,
	}
	if cmd.Flags().Changed("days") {
		req.LookbackDays = runDays
	}
	if cmd.Flags().Changed("min-score") {
		req.MinScore = runMinScore
	}
	if cmd.Flags().Changed("refused-only") {
		req.RefusedOnly = runRefusedOnly
	}
	return req
}

// exportFormat resolves --export, falling back to the --out extension.
func exportFormat(flag, out string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	return export.FormatFor(out), nil
}

func printResult(out io.Writer, res *pipeline.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	formatLeads(out, res.Leads)
	_, _ = io.WriteString(out, "\n")
	formatRunSummary(out, res)
	formatWarnings(out, res.Warnings)
	return nil
}

// addRunFlags binds run's flags to c.
func addRunFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringSliceVar(&runSources, "sources", nil, "comma-separated source names (default: sources.enabled or all enabled)")
	f.IntVar(&runDays, "days", 0, "lookback window in days (default from config)")
	f.IntVar(&runMinScore, "min-score", 0, "drop leads scoring below this (default from config)")
	f.BoolVar(&runRefusedOnly, "refused-only", false, "keep only refused applications")
	f.StringVar(&runExport, "export", "", "export format: csv or xlsx")
	f.StringVar(&runOut, "out", "", "export path (default planning_leads_YYYYMMDD.<ext>)")
	f.BoolVar(&runDryRun, "dry-run", false, "score and rank without writing to the store")
	f.BoolVar(&runJSON, "json", false, "print the result as JSON")
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
