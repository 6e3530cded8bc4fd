package main

import (
	"os"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured council sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := initRegistry()
		if err != nil {
			return err
		}
		formatSources(os.Stdout, reg.Descriptors())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
