package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/posform-export/constants"
	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/entity"
	"github.com/joseph-ayodele/posform-export/internal/export"
	"github.com/joseph-ayodele/posform-export/internal/extract"
)

// ErrEmptyDocument is recorded for a document whose text layer is blank.
var ErrEmptyDocument = errors.New("document has no text")

// TextSource returns the text of one document.
type TextSource interface {
	Text(ctx context.Context, path string) (string, error)
}

// Failure is a document that produced no row.
type Failure struct {
	FileName string
	Err      error
}

// Result describes one folder run.
type Result struct {
	RunID     uuid.UUID
	Folder    string
	TableFile string // empty unless a table was written
	Status    constants.RunStatus

	Total     int // documents found
	Processed int // documents a worker finished, successfully or not
	RowCount  int // records extracted, in table order
	Failed    []Failure

	Summary    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Pipeline converts folders of documents into tables. Every ConvertFolder
// call runs its own worker pool, torn down before the call returns, so one
// Pipeline may serve several folders at once.
type Pipeline struct {
	texts     TextSource
	extractor *extract.FieldExtractor
	sink      export.ReportSink
	logger    *slog.Logger
	defaults  settings

	mu     sync.Mutex
	active map[*BatchState]context.CancelFunc
}

func New(texts TextSource, extractor *extract.FieldExtractor, sink export.ReportSink, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extract.NewFieldExtractor(nil, logger)
	}
	p := &Pipeline{
		texts:     texts,
		extractor: extractor,
		sink:      sink,
		logger:    logger,
		defaults:  defaultSettings(),
		active:    make(map[*BatchState]context.CancelFunc),
	}
	for _, o := range opts {
		o(&p.defaults)
	}
	return p
}

// Cancel stops every ConvertFolder call currently running on p. Documents
// not yet started are skipped and no table is written.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for state, cancel := range p.active {
		state.cancel()
		cancel()
	}
}

func (p *Pipeline) track(state *BatchState, cancel context.CancelFunc) {
	p.mu.Lock()
	p.active[state] = cancel
	p.mu.Unlock()
}

func (p *Pipeline) untrack(state *BatchState) {
	p.mu.Lock()
	delete(p.active, state)
	p.mu.Unlock()
}

// ConvertFolder extracts every PDF directly inside folder and writes
// <folder>/<folder-name>.xlsx with one row per readable document, in file
// name order.
//
// A missing folder or one that is not a directory returns an AppError with
// CodeInvalidFolder. A folder without documents returns StatusEmpty and
// writes nothing. A sink failure returns the result together with an
// AppError with CodeSinkFailed. Cancellation is not an error: the result
// carries StatusCancelled and no table is written.
func (p *Pipeline) ConvertFolder(ctx context.Context, folder string, opts ...Option) (*Result, error) {
	s := p.defaults
	for _, o := range opts {
		o(&s)
	}

	runID := uuid.New()
	ctx = common.WithRunID(ctx, runID.String())
	log := p.logger.With("run_id", runID.String(), "folder", folder)

	abs, jobs, err := openFolder(folder)
	if err != nil {
		log.Error("pipeline.folder.invalid", "error", err)
		return nil, err
	}
	name := filepath.Base(abs)

	res := &Result{
		RunID:     runID,
		Folder:    abs,
		Total:     len(jobs),
		StartedAt: time.Now(),
	}
	if len(jobs) == 0 {
		res.Status = constants.RunStatusEmpty
		res.Summary = fmt.Sprintf("No PDF files found in folder: %s", name)
		res.FinishedAt = time.Now()
		log.Info("pipeline.folder.empty")
		return res, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	state := newBatchState(len(jobs))
	p.track(state, cancel)
	defer p.untrack(state)

	log.Info("pipeline.folder.start", "documents", len(jobs), "workers", min(s.workers, len(jobs)))
	p.run(ctx, state, jobs, s, log)

	rows := make([][]string, 0, len(jobs))
	for i := range jobs {
		j := &jobs[i]
		switch {
		case j.Succeeded():
			rows = append(rows, j.Record.Row(j.SourceName))
		case j.Done:
			res.Failed = append(res.Failed, Failure{FileName: j.SourceName, Err: j.Err})
		}
	}
	res.Processed = state.Completed()
	res.RowCount = len(rows)

	if state.Cancelled() {
		res.Status = constants.RunStatusCancelled
		res.Summary = fmt.Sprintf("Conversion cancelled in folder: %s after %d of %d PDFs", name, res.Processed, res.Total)
		res.FinishedAt = time.Now()
		log.Warn("pipeline.folder.cancelled", "processed", res.Processed, "total", res.Total)
		return res, nil
	}

	path := TablePath(abs)
	if err := p.sink.Write(context.WithoutCancel(ctx), path, constants.ReportHeader, rows); err != nil {
		res.Status = constants.RunStatusFailed
		res.Summary = fmt.Sprintf("Failed to write table for folder %s: %v", name, err)
		res.FinishedAt = time.Now()
		log.Error("pipeline.folder.sink_failed", "path", path, "error", err)
		return res, common.NewAppError(common.CodeSinkFailed, fmt.Sprintf("write %s", path), err)
	}

	res.Status = constants.RunStatusCompleted
	res.TableFile = path
	res.Summary = fmt.Sprintf("Processed %d PDFs successfully in folder: %s", res.RowCount, name)
	res.FinishedAt = time.Now()
	log.Info("pipeline.folder.ok",
		"rows", res.RowCount,
		"failed", len(res.Failed),
		"elapsed_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)
	return res, nil
}

func openFolder(folder string) (string, []entity.DocumentJob, error) {
	if strings.TrimSpace(folder) == "" {
		return "", nil, common.NewAppError(common.CodeInvalidFolder, "folder is required", common.ErrInvalidInput)
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return "", nil, common.NewAppError(common.CodeInvalidFolder, folder, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, common.NewAppError(common.CodeInvalidFolder, fmt.Sprintf("invalid folder: %s", folder), err)
	}
	if !info.IsDir() {
		return "", nil, common.NewAppError(common.CodeInvalidFolder, fmt.Sprintf("not a directory: %s", folder), common.ErrInvalidInput)
	}
	jobs, err := enumerate(abs)
	if err != nil {
		return "", nil, common.NewAppError(common.CodeInvalidFolder, fmt.Sprintf("invalid folder: %s", folder), err)
	}
	return abs, jobs, nil
}

// run fans jobs out to a fresh pool and returns once every worker and the
// progress reporter have stopped. Each worker writes only the job whose
// index it received.
func (p *Pipeline) run(ctx context.Context, state *BatchState, jobs []entity.DocumentJob, s settings, log *slog.Logger) {
	counts := make(chan int64, len(jobs))
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		reportProgress(counts, int64(len(jobs)), int64(s.progressEvery), s.progress)
	}()

	indices := make(chan int)
	var g errgroup.Group
	for w := 0; w < min(s.workers, len(jobs)); w++ {
		g.Go(func() error {
			for i := range indices {
				if stopped(ctx, state) {
					continue
				}
				p.process(ctx, &jobs[i], log)
				counts <- state.complete()
			}
			return nil
		})
	}

dispatch:
	for i := range jobs {
		if stopped(ctx, state) {
			break
		}
		select {
		case indices <- i:
		case <-ctx.Done():
			state.cancel()
			break dispatch
		}
	}
	close(indices)
	_ = g.Wait()

	close(counts)
	<-reported
}

func stopped(ctx context.Context, state *BatchState) bool {
	if ctx.Err() != nil {
		state.cancel()
	}
	return state.Cancelled()
}

func (p *Pipeline) process(ctx context.Context, job *entity.DocumentJob, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			job.Record, job.Err = nil, fmt.Errorf("panic: %v", r)
			log.Error("pipeline.document.panic", "file", job.SourceName, "index", job.OriginalIndex, "panic", r)
		}
		job.Done = true
	}()

	text, err := p.texts.Text(ctx, job.SourcePath)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyDocument
	}
	if err == nil {
		job.Record, err = p.extractor.Extract(ctx, text)
	}
	if err != nil {
		job.Err = err
		log.Warn("pipeline.document.failed", "file", job.SourceName, "index", job.OriginalIndex, "error", err)
		return
	}
	log.Debug("pipeline.document.ok", "file", job.SourceName, "index", job.OriginalIndex)
}
