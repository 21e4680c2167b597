package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/posform-export/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// FolderJob asks for one folder to be converted.
type FolderJob struct {
	ID          uuid.UUID
	Folder      string
	Options     []pipeline.Option
	SubmittedAt time.Time

	// set by FolderQueue.ConvertFolder
	caller context.Context
	reply  chan<- jobOutcome
}

type jobOutcome struct {
	res *pipeline.Result
	err error
}

// NewFolderJob stamps a job for folder.
func NewFolderJob(folder string, opts ...pipeline.Option) FolderJob {
	return FolderJob{ID: uuid.New(), Folder: folder, Options: opts, SubmittedAt: time.Now()}
}

type Queue interface {
	Enqueue(ctx context.Context, job FolderJob) error
	Shutdown(ctx context.Context)
}

// Converter is what a queue worker runs for each job.
type Converter interface {
	ConvertFolder(ctx context.Context, folder string, opts ...pipeline.Option) (*pipeline.Result, error)
}

// ResultFunc receives each job outcome. It is called from worker goroutines.
type ResultFunc func(job FolderJob, res *pipeline.Result, err error)
