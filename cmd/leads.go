package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/export"
	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/store"
)

var (
	leadsStatus   string
	leadsMinScore int
	leadsLimit    int
	leadsExport   string
	leadsOut      string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and update persisted leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted leads by score",
	Example: `  lead-scout leads list --status New --min-score 6
  lead-scout leads list --export xlsx --out backlog.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		all, err := st.LoadAll(ctx)
		if err != nil {
			return eris.Wrap(err, "load leads")
		}
		leads := filterStored(all, leadsStatus, leadsMinScore, leadsLimit)

		if leadsExport != "" || leadsOut != "" {
			format, err := exportFormat(leadsExport, leadsOut)
			if err != nil {
				return err
			}
			path := leadsOut
			if path == "" {
				path = export.FileName(time.Now(), format)
			}
			if err := export.WriteFile(path, scoredOf(leads)); err != nil {
				return err
			}
			zap.L().Info("leads exported", zap.String("path", path), zap.Int("leads", len(leads)))
			return nil
		}

		if len(leads) == 0 {
			fmt.Println("No leads found.")
			return nil
		}
		formatStoredLeads(os.Stdout, leads)
		return nil
	},
}

var leadsSetStatusCmd = &cobra.Command{
	Use:   "set-status <source> <reference> <status>",
	Short: "Record a workflow status for a lead",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		key := model.LeadKey{SourceID: args[0], Reference: args[1]}
		status := strings.TrimSpace(args[2])
		if status == "" {
			return eris.New("status must not be empty")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SetWorkflowStatus(ctx, key, status); err != nil {
			if eris.Is(err, store.ErrNotFound) {
				return eris.Errorf("no lead %s/%s in the %s store", key.SourceID, key.Reference, cfg.Store.Driver)
			}
			return eris.Wrap(err, "set workflow status")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s/%s -> %s\n", key.SourceID, key.Reference, status)
		return nil
	},
}

func init() {
	f := leadsListCmd.Flags()
	f.StringVar(&leadsStatus, "status", "", "only leads with this workflow status")
	f.IntVar(&leadsMinScore, "min-score", 0, "only leads scoring at least this")
	f.IntVar(&leadsLimit, "limit", 50, "max leads to show (0 for all)")
	f.StringVar(&leadsExport, "export", "", "export format: csv or xlsx")
	f.StringVar(&leadsOut, "out", "", "export path")

	leadsCmd.AddCommand(leadsListCmd, leadsSetStatusCmd)
	rootCmd.AddCommand(leadsCmd)
}
