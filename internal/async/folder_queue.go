package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/posform-export/internal/pipeline"
)

// FolderQueue converts folders on a fixed set of workers. Each folder gets
// its own ConvertFolder call, so document pools are never shared between
// folders.
type FolderQueue struct {
	conv     Converter
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	base context.Context
	ch   chan FolderJob
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*FolderQueue)

func WithWorkers(n int) Option {
	return func(q *FolderQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *FolderQueue) {
		if n > 0 {
			q.ch = make(chan FolderJob, n)
		}
	}
}

// WithFolderTimeout bounds each folder run; 0 means no bound.
func WithFolderTimeout(d time.Duration) Option {
	return func(q *FolderQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithResultFunc(fn ResultFunc) Option {
	return func(q *FolderQueue) {
		q.onResult = fn
	}
}

// NewFolderQueue starts the workers. Cancelling ctx cancels every folder run
// in flight and any run started later.
func NewFolderQueue(ctx context.Context, conv Converter, logger *slog.Logger, opts ...Option) *FolderQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &FolderQueue{
		conv:    conv,
		logger:  logger,
		workers: 2,
		base:    ctx,
		ch:      make(chan FolderJob, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *FolderQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)
				for job := range q.ch {
					q.handle(workerID, job)
				}
				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *FolderQueue) handle(workerID int, job FolderJob) {
	ctx, cancel := context.WithCancel(q.base)
	defer cancel()
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	if job.caller != nil {
		stop := context.AfterFunc(job.caller, cancel)
		defer stop()
	}

	res, err := q.conv.ConvertFolder(ctx, job.Folder, job.Options...)
	if err != nil {
		q.logger.Error("queue.folder.failed", "worker_id", workerID, "job_id", job.ID, "folder", job.Folder, "error", err)
	} else {
		q.logger.Info("queue.folder.done",
			"worker_id", workerID,
			"job_id", job.ID,
			"folder", job.Folder,
			"status", res.Status,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onResult != nil {
		q.onResult(job, res, err)
	}
	if job.reply != nil {
		job.reply <- jobOutcome{res: res, err: err}
	}
}

// ConvertFolder runs folder on the queue and waits for its result, so the
// queue itself satisfies Converter. Cancelling ctx cancels the run whether
// it is still queued or already in flight.
func (q *FolderQueue) ConvertFolder(ctx context.Context, folder string, opts ...pipeline.Option) (*pipeline.Result, error) {
	reply := make(chan jobOutcome, 1)
	job := NewFolderJob(folder, opts...)
	job.caller = ctx
	job.reply = reply
	if err := q.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	out := <-reply
	return out.res, out.err
}

// Enqueue hands job to a worker, blocking while the buffer is full.
func (q *FolderQueue) Enqueue(ctx context.Context, job FolderJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "folder", job.Folder)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "job_id", job.ID, "folder", job.Folder)
		return nil
	default:
	}
	q.logger.Warn("queue.full", "folder", job.Folder)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish, or
// for ctx to end.
func (q *FolderQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
