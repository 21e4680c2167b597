package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/entity"
)

var historyOpts struct {
	folder string
	limit  int
	id     string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversion runs, newest first",
	Long: `History lists the runs stored in the run history database. Use --id to
show one run together with the files that produced no row.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyOpts.folder, "folder", "", "only runs of this folder")
	f.IntVar(&historyOpts.limit, "limit", 20, "maximum number of runs")
	f.StringVar(&historyOpts.id, "id", "", "show a single run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, _, err := openApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Config.History.DSN == "" {
		return common.NewAppError(common.CodeConfig, "run history is disabled", common.ErrInvalidInput)
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyOpts.id != "" {
		id, err := uuid.Parse(historyOpts.id)
		if err != nil {
			return common.NewAppError(common.CodeInvalidRequest, "invalid run id", err)
		}
		run, err := a.Service.Run(ctx, id)
		if err != nil {
			return err
		}
		printRun(out, run)
		return nil
	}

	folder := historyOpts.folder
	if folder != "" {
		if folder, err = filepath.Abs(folder); err != nil {
			return err
		}
	}
	runs, err := a.Service.History(ctx, folder, historyOpts.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tROWS\tFAILED\tFOLDER")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status, run.RowCount, len(run.Failures), run.Folder)
	}
	return tw.Flush()
}

func printRun(out io.Writer, run *entity.Run) {
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Folder:   %s\n", run.Folder)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "PDFs:     %d found, %d processed, %d rows\n", run.Total, run.Processed, run.RowCount)
	if run.TableFile != "" {
		fmt.Fprintf(out, "Table:    %s\n", run.TableFile)
	}
	fmt.Fprintf(out, "Summary:  %s\n", run.Summary)
	for _, f := range run.Failures {
		fmt.Fprintf(out, "  skipped %s: %s\n", f.FileName, f.Reason)
	}
}
