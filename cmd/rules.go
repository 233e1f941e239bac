package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/capsched/app"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the scoring rules a policy may use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range app.Rules() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
