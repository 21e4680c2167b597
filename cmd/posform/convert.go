package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/posform-export/constants"
	"github.com/joseph-ayodele/posform-export/internal/app"
	"github.com/joseph-ayodele/posform-export/internal/async"
	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/pipeline"
)

var convertOpts struct {
	workers       int
	folderWorkers int
	progressEvery int
	timeout       time.Duration
}

var convertCmd = &cobra.Command{
	Use:   "convert [folder...]",
	Short: "Convert each folder's PDFs into <folder>/<folder name>.xlsx",
	Long: `Convert reads the PDFs directly inside each folder (subfolders are not
searched), extracts one row per form and writes the rows, in file name order,
to <folder>/<folder name>.xlsx. Several folders are converted concurrently.

Without arguments convert prompts for folder paths until "exit" is entered.`,
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.IntVar(&convertOpts.workers, "workers", 0, "documents converted concurrently per folder")
	f.IntVar(&convertOpts.folderWorkers, "folder-workers", 0, "folders converted concurrently")
	f.IntVar(&convertOpts.progressEvery, "progress-every", 0, "report progress every N documents")
	f.DurationVar(&convertOpts.timeout, "timeout", 0, "give up on a folder after this long (0 = no limit)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	a, logger, err := openApp(cmd, applyConvertFlags)
	if err != nil {
		return err
	}
	defer a.Close()

	out := &syncWriter{w: cmd.OutOrStdout()}
	if len(args) == 0 {
		return runInteractive(cmd.Context(), a, cmd.InOrStdin(), out)
	}

	var failed atomic.Int32
	opts := []async.Option{
		async.WithWorkers(a.Config.Pipeline.FolderWorkers),
		async.WithQueueSize(len(args)),
		async.WithResultFunc(func(job async.FolderJob, res *pipeline.Result, err error) {
			if printResult(out, job.Folder, res, err) {
				failed.Add(1)
			}
		}),
	}
	if convertOpts.timeout > 0 {
		opts = append(opts, async.WithFolderTimeout(convertOpts.timeout))
	}
	q := async.NewFolderQueue(cmd.Context(), a.Service, logger, opts...)

	for _, folder := range args {
		name := filepath.Base(folder)
		job := async.NewFolderJob(folder, pipeline.WithProgress(func(n int) {
			fmt.Fprintf(out, "[%s] processed %d PDF files...\n", name, n)
		}))
		if err := q.Enqueue(cmd.Context(), job); err != nil {
			q.Shutdown(context.Background())
			return err
		}
	}
	q.Shutdown(context.Background())

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d folders failed", n, len(args))
	}
	return nil
}

func applyConvertFlags(cfg *common.Config) {
	if convertOpts.workers > 0 {
		cfg.Pipeline.Workers = convertOpts.workers
	}
	if convertOpts.folderWorkers > 0 {
		cfg.Pipeline.FolderWorkers = convertOpts.folderWorkers
	}
	if convertOpts.progressEvery > 0 {
		cfg.Pipeline.ProgressEvery = convertOpts.progressEvery
	}
}

// runInteractive prompts for folders until "exit" or end of input. A failed
// folder is reported and the prompt continues.
func runInteractive(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "=== POS form converter ===")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Folder containing PDFs (or 'exit' to quit): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(input, "exit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if input == "" {
			fmt.Fprintln(out, "Please enter a folder path.")
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(out, "Processing folder: %s\n", input)
		res, err := a.Service.ConvertFolder(ctx, input, pipeline.WithProgress(func(n int) {
			fmt.Fprintf(out, "   processed %d PDF files...\n", n)
		}))
		printResult(out, input, res, err)
		fmt.Fprintln(out)
	}
}

// printResult writes a folder outcome and reports whether it counts as a
// failure.
func printResult(out io.Writer, folder string, res *pipeline.Result, err error) bool {
	if err != nil {
		fmt.Fprintf(out, "FAILED %s: %v\n", folder, err)
		return true
	}
	switch res.Status {
	case constants.RunStatusCompleted:
		fmt.Fprintf(out, "OK %s\n   table: %s (%d rows)\n", res.Summary, res.TableFile, res.RowCount)
		for _, f := range res.Failed {
			fmt.Fprintf(out, "   skipped %s: %v\n", f.FileName, f.Err)
		}
	case constants.RunStatusCancelled:
		fmt.Fprintf(out, "CANCELLED %s after %d of %d PDFs\n", res.Folder, res.Processed, res.Total)
	default:
		fmt.Fprintln(out, res.Summary)
	}
	return false
}
