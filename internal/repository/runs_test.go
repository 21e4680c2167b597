package repository

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(context.Background(), Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "history", "posform.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func newRun(folder, status string, started time.Time) *entity.Run {
	return &entity.Run{
		ID:         uuid.New(),
		Folder:     folder,
		Status:     status,
		Total:      3,
		Processed:  3,
		RowCount:   2,
		Summary:    "Processed 2 PDFs successfully in folder: " + filepath.Base(folder),
		TableFile:  filepath.Join(folder, filepath.Base(folder)+".xlsx"),
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
}

func TestRunRepository_SaveAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db, nil)
	ctx := context.Background()

	run := newRun("/data/batch1", "COMPLETED", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))
	run.Failures = []entity.RunFailure{{FileName: "b.pdf", Reason: "document has no text"}}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Folder, got.Folder)
	assert.Equal(t, 2, got.RowCount)
	assert.Equal(t, run.TableFile, got.TableFile)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, run.Failures, got.Failures)

	_, err = repo.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunRepository_ListRuns(t *testing.T) {
	db := openTestDB(t)
	repo := NewRunRepository(db, nil)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	older := newRun("/data/a", "COMPLETED", base)
	newer := newRun("/data/a", "CANCELLED", base.Add(time.Hour))
	other := newRun("/data/b", "EMPTY", base.Add(30*time.Minute))
	for _, r := range []*entity.Run{older, newer, other} {
		require.NoError(t, repo.SaveRun(ctx, r))
	}

	all, err := repo.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{newer.ID, other.ID, older.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	onlyA, err := repo.ListRuns(ctx, "/data/a", 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, newer.ID, onlyA[0].ID)
	assert.Empty(t, onlyA[0].Failures)
}

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), Config{DSN: "mysql://localhost/x"}, nil)
	assert.Error(t, err)
}

func TestOpen_ReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posform.db")
	ctx := context.Background()

	db, err := Open(ctx, Config{DSN: "file:" + path}, nil)
	require.NoError(t, err)
	run := newRun("/data/x", "COMPLETED", time.Now())
	require.NoError(t, NewRunRepository(db, nil).SaveRun(ctx, run))
	db.Close()

	db, err = Open(ctx, Config{DSN: "sqlite://" + path}, nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.HealthCheck(ctx, time.Second))
	got, err := NewRunRepository(db, nil).GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Folder, got.Folder)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.migrate(ctx))

	for _, table := range []string{tableRuns, tableFailures} {
		var n int
		row := db.drv.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		require.NoError(t, row.Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}
