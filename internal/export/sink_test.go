package export

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/posform-export/constants"
)

func newTestSink() *XLSXSink {
	return NewXLSXSink(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestXLSXSink_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.xlsx")
	rows := [][]string{
		{"a.pdf", "Shop A", "", "", "", "", "null", "1", "12394567", "12004567"},
		{"b.pdf", "Shop B", "", "", "", "", "", "", "", ""},
	}

	require.NoError(t, newTestSink().Write(context.Background(), path, constants.ReportHeader, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{constants.SheetName}, f.GetSheetList())
	got, err := f.GetRows(constants.SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, constants.ReportHeader, got[0])
	assert.Equal(t, rows[0], got[1])
	assert.Equal(t, "Shop B", got[2][1])

	styleID, err := f.GetCellStyle(constants.SheetName, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestXLSXSink_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, newTestSink().Write(context.Background(), path, constants.ReportHeader, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(constants.SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestXLSXSink_WriteFailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.xlsx")
	err := newTestSink().Write(context.Background(), path, constants.ReportHeader, nil)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestXLSXSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "out.xlsx")

	assert.ErrorIs(t, newTestSink().Write(ctx, path, constants.ReportHeader, nil), context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
