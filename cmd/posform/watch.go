package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/posform-export/internal/async"
	"github.com/joseph-ayodele/posform-export/internal/pipeline"
	"github.com/joseph-ayodele/posform-export/internal/watch"
)

var watchOpts struct {
	initialScan bool
	debounce    time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch <root>...",
	Short: "Convert folders again whenever PDFs arrive under the roots",
	Long: `Watch follows every folder under the given roots. Once new or changed PDFs
in a folder have been quiet for the debounce period, the folder is converted
and its table rewritten. Stop with Ctrl+C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolVar(&watchOpts.initialScan, "initial-scan", false, "convert folders that already hold PDFs on start")
	f.DurationVar(&watchOpts.debounce, "debounce", 0, "quiet period before a folder is converted (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, logger, err := openApp(cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	debounce := time.Duration(a.Config.Watch.Debounce)
	if watchOpts.debounce > 0 {
		debounce = watchOpts.debounce
	}
	folders, errs, err := watch.Start(ctx, watch.Config{
		Roots:       args,
		InitialScan: watchOpts.initialScan,
		Debounce:    debounce,
	}, logger)
	if err != nil {
		return err
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	q := async.NewFolderQueue(ctx, a.Service, logger,
		async.WithWorkers(a.Config.Pipeline.FolderWorkers),
		async.WithResultFunc(func(job async.FolderJob, res *pipeline.Result, err error) {
			printResult(out, job.Folder, res, err)
		}),
	)
	defer q.Shutdown(context.Background())

	fmt.Fprintf(out, "Watching %d root(s), press Ctrl+C to stop\n", len(args))
	for {
		select {
		case <-ctx.Done():
			return nil
		case folder, ok := <-folders:
			if !ok {
				return nil
			}
			if err := q.Enqueue(ctx, async.NewFolderJob(folder)); err != nil {
				logger.Warn("watch.enqueue.failed", "folder", folder, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch.error", "error", err)
		}
	}
}
