package convert

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/entity"
	"github.com/joseph-ayodele/posform-export/internal/pipeline"
	"github.com/joseph-ayodele/posform-export/internal/repository"
)

// Service runs folder conversions and records each outcome in the run
// history when one is configured.
type Service struct {
	pipeline *pipeline.Pipeline
	runs     repository.RunRepository
	logger   *slog.Logger
}

// NewService wires a pipeline to an optional history store; runs may be nil.
func NewService(p *pipeline.Pipeline, runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pipeline: p, runs: runs, logger: logger}
}

// ConvertFolder converts one folder. History write failures are logged and
// never change the returned result or error.
func (s *Service) ConvertFolder(ctx context.Context, folder string, opts ...pipeline.Option) (*pipeline.Result, error) {
	res, err := s.pipeline.ConvertFolder(ctx, folder, opts...)
	if res != nil && s.runs != nil {
		if herr := s.runs.SaveRun(context.WithoutCancel(ctx), ToRun(res)); herr != nil {
			s.logger.Error("convert.history.failed", "run_id", res.RunID, "folder", res.Folder, "error", herr)
		}
	}
	return res, err
}

// Cancel stops every conversion in flight.
func (s *Service) Cancel() {
	s.pipeline.Cancel()
}

// History lists recorded runs, newest first.
func (s *Service) History(ctx context.Context, folder string, limit int) ([]*entity.Run, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(ctx, folder, limit)
}

// Run fetches one recorded run with its failures.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	if s.runs == nil {
		return nil, common.ErrNotFound
	}
	return s.runs.GetRun(ctx, id)
}

// ToRun converts a pipeline result into its persisted form.
func ToRun(res *pipeline.Result) *entity.Run {
	run := &entity.Run{
		ID:         res.RunID,
		Folder:     res.Folder,
		TableFile:  res.TableFile,
		Status:     string(res.Status),
		Total:      res.Total,
		Processed:  res.Processed,
		RowCount:   res.RowCount,
		Summary:    res.Summary,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	for _, f := range res.Failed {
		reason := ""
		if f.Err != nil {
			reason = f.Err.Error()
		}
		run.Failures = append(run.Failures, entity.RunFailure{FileName: f.FileName, Reason: reason})
	}
	return run
}
