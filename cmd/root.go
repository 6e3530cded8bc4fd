package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lead-scout",
	Short: "Planning application lead qualification pipeline",
	Long: "Polls UK council planning data, scores each application against the lead rubric, " +
		"ranks the qualified leads, keeps them in a lead store, and mails a weekly digest.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
