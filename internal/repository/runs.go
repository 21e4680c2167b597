package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/entity"
)

// RunRepository stores the history of folder conversions.
type RunRepository interface {
	SaveRun(ctx context.Context, run *entity.Run) error
	// ListRuns returns the most recent runs first. An empty folder matches
	// every folder; limit <= 0 means 20.
	ListRuns(ctx context.Context, folder string, limit int) ([]*entity.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*entity.Run, error)
}

type runRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRunRepository(db *DB, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{db: db, logger: logger}
}

var runColumns = []string{
	"id", "folder", "status", "total", "processed", "row_count",
	"table_file", "summary", "started_at", "finished_at",
}

func (r *runRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect())
}

// SaveRun inserts the run and its failures in one transaction.
func (r *runRepository) SaveRun(ctx context.Context, run *entity.Run) error {
	b := r.builder()
	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	query, args := b.Insert(tableRuns).
		Columns(runColumns...).
		Values(
			run.ID.String(), run.Folder, run.Status, run.Total, run.Processed, run.RowCount,
			run.TableFile, run.Summary, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	if len(run.Failures) > 0 {
		ins := b.Insert(tableFailures).Columns("run_id", "file_name", "error")
		for _, f := range run.Failures {
			ins.Values(run.ID.String(), f.FileName, f.Reason)
		}
		query, args := ins.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert run failures: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Debug("history.run.saved", "run_id", run.ID, "status", run.Status, "failures", len(run.Failures))
	return nil
}

func (r *runRepository) ListRuns(ctx context.Context, folder string, limit int) ([]*entity.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	b := r.builder()
	sel := b.Select(runColumns...).
		From(b.Table(tableRuns)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit)
	if folder != "" {
		sel.Where(entsql.EQ("folder", folder))
	}

	runs, err := r.queryRuns(ctx, sel)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.Failures, err = r.failures(ctx, run.ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *runRepository) GetRun(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	b := r.builder()
	sel := b.Select(runColumns...).
		From(b.Table(tableRuns)).
		Where(entsql.EQ("id", id.String()))

	runs, err := r.queryRuns(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	run := runs[0]
	if run.Failures, err = r.failures(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepository) queryRuns(ctx context.Context, sel *entsql.Selector) ([]*entity.Run, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*entity.Run
	for rows.Next() {
		var (
			run                          entity.Run
			id, started                  string
			tableFile, summary, finished sql.NullString
		)
		if err := rows.Scan(&id, &run.Folder, &run.Status, &run.Total, &run.Processed, &run.RowCount,
			&tableFile, &summary, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var err error
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		run.TableFile = tableFile.String
		run.Summary = summary.String
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished.String)
		out = append(out, &run)
	}
	return out, rows.Err()
}

func (r *runRepository) failures(ctx context.Context, runID uuid.UUID) ([]entity.RunFailure, error) {
	b := r.builder()
	query, args := b.Select("file_name", "error").
		From(b.Table(tableFailures)).
		Where(entsql.EQ("run_id", runID.String())).
		OrderBy("file_name").
		Query()

	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query run failures: %w", err)
	}
	defer rows.Close()

	var out []entity.RunFailure
	for rows.Next() {
		var f entity.RunFailure
		var reason sql.NullString
		if err := rows.Scan(&f.FileName, &reason); err != nil {
			return nil, fmt.Errorf("scan run failure: %w", err)
		}
		f.Reason = reason.String
		out = append(out, f)
	}
	return out, rows.Err()
}

// Timestamps are stored as fixed-width UTC text so both backends sort them
// the same way.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
