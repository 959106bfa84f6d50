package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hpkotak/mindful/internal/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure Mindful (first-time or reconfigure)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setup.Run(ioIn, ioOut)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
