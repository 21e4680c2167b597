package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/posform-export/constants"
)

// ReportSink persists one table: a header row followed by data rows.
type ReportSink interface {
	Write(ctx context.Context, path string, header []string, rows [][]string) error
}

const (
	minColWidth = 10
	maxColWidth = 60
)

// XLSXSink writes tables as single-sheet workbooks.
type XLSXSink struct {
	sheet  string
	logger *slog.Logger
}

func NewXLSXSink(logger *slog.Logger) *XLSXSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXSink{sheet: constants.SheetName, logger: logger}
}

// Write renders the workbook in memory, writes it to a temp file next to
// path and renames it into place. On error no file is left at path.
func (s *XLSXSink) Write(ctx context.Context, path string, header []string, rows [][]string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	buf, err := s.Render(header, rows)
	if err != nil {
		return err
	}
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("xlsx write %s: %w", path, err)
	}

	s.logger.Info("export.xlsx.ok",
		"path", path,
		"rows", len(rows),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Render builds the workbook: bold centered header, one row per record and
// column widths sized to the longest cell.
func (s *XLSXSink) Render(header []string, rows [][]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	widths := make([]int, len(header))
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(s.sheet, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
		widths[i] = utf8.RuneCountInString(h)
	}

	if len(header) > 0 {
		style, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return nil, fmt.Errorf("xlsx style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(s.sheet, "A1", last, style); err != nil {
			return nil, fmt.Errorf("xlsx style: %w", err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(s.sheet, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", r+1, err)
			}
			if c < len(widths) {
				widths[c] = max(widths[c], utf8.RuneCountInString(v))
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(s.sheet, col, col, float64(min(max(w+2, minColWidth), maxColWidth)))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx render: %w", err)
	}
	return buf, nil
}

func writeAtomic(path string, data []byte) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
