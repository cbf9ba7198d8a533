package cmd

import (
	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List known dataset pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printDatasets(cfg)
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
