package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/capsched/app"
	"github.com/kilianp07/capsched/infra/landscapefile"
	"github.com/kilianp07/capsched/pkg/export"
)

var (
	landscapePath string
	outputPath    string
	csvPath       string
	taskKeys      []string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule the tasks of a landscape document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			doc, err := svc.Schedule(ctx, landscapePath, taskKeys)
			if err != nil {
				return err
			}
			return writeResult(cmd, svc, doc)
		})
	},
}

var unscheduleCmd = &cobra.Command{
	Use:   "unschedule",
	Short: "Release scheduled tasks of a landscape document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			doc, err := svc.Unschedule(ctx, landscapePath, taskKeys)
			if err != nil {
				return err
			}
			return writeResult(cmd, svc, doc)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{scheduleCmd, unscheduleCmd} {
		c.Flags().StringVarP(&landscapePath, "landscape", "l", "", "landscape document (json or yaml)")
		c.Flags().StringVarP(&outputPath, "output", "o", "", "write the resulting document here instead of stdout")
		c.Flags().StringSliceVarP(&taskKeys, "task", "t", nil, "restrict the run to these task keys")
		_ = c.MarkFlagRequired("landscape")
		rootCmd.AddCommand(c)
	}
	scheduleCmd.Flags().StringVar(&csvPath, "csv", "", "also export the committed schedule as CSV")
}

func writeResult(cmd *cobra.Command, svc *app.Service, doc *landscapefile.File) error {
	sum := svc.Scheduler.LastRun()
	fmt.Fprintf(cmd.ErrOrStderr(), "%s run %s: %d committed, %d failed in %d iterations\n",
		sum.Operation, sum.RunID, sum.Committed, sum.Failed, sum.Iterations)

	if csvPath != "" {
		if err := writeFile(csvPath, func(w io.Writer) error {
			return export.WriteCSV(w, export.Entries(svc.Scheduler.Landscape()))
		}); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}
	if outputPath != "" {
		return landscapefile.Save(outputPath, doc)
	}
	return landscapefile.Encode(cmd.OutOrStdout(), "json", doc)
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
