package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/posform-export/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_WithSQLiteHistory(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.History.DSN = "sqlite://" + filepath.Join(t.TempDir(), "posform.db")

	a, err := Build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer a.Close()

	folder := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(folder, 0o755))
	_, err = a.Service.ConvertFolder(context.Background(), folder)
	require.NoError(t, err)

	runs, err := a.Service.History(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "EMPTY", runs[0].Status)
}

func TestBuild_RejectsBadPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rules":[{"name":"colour","pattern":"(x)"}]}`), 0o600))
	cfg := common.DefaultConfig()
	cfg.History.DSN = ""
	cfg.Pipeline.Patterns = path

	_, err := Build(context.Background(), cfg, discardLogger())
	assert.True(t, common.IsCode(err, common.CodePattern))
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Pipeline.Workers = -1

	_, err := Build(context.Background(), cfg, discardLogger())
	assert.True(t, common.IsCode(err, common.CodeConfig))
}
