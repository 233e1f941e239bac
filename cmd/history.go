package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/capsched/app"
	"github.com/kilianp07/capsched/core/runlog"
)

var (
	historyTask     string
	historyResource string
	historyOp       string
	historySince    time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the run log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			q := runlog.Query{TaskKey: historyTask, ResourceKey: historyResource, Operation: historyOp}
			if historySince > 0 {
				q.Start = time.Now().Add(-historySince)
			}
			recs, err := svc.History(ctx, q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range recs {
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyTask, "task", "", "only runs touching this task")
	historyCmd.Flags().StringVar(&historyResource, "resource", "", "only runs using this resource")
	historyCmd.Flags().StringVar(&historyOp, "op", "", "schedule or unschedule")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only runs newer than this")
	rootCmd.AddCommand(historyCmd)
}
