package textextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/posform-export/internal/common"
)

// ErrNoPages is returned for a PDF that parses but has no pages.
var ErrNoPages = errors.New("pdf has no pages")

type Config struct {
	Pdftotext string // binary name or path, default "pdftotext"
	Layout    bool   // pass -layout; off keeps content stream order
	MaxPages  int    // 0 = all pages
}

// Extractor reads the text layer of a PDF with pdftotext after checking the
// file with pdfcpu.
type Extractor struct {
	cfg       Config
	runner    Runner
	pageCount func(path string) (int, error)
	logger    *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:       cfg,
		runner:    execRunner{},
		pageCount: api.PageCountFile,
		logger:    logger,
	}
}

// Text returns the normalized text of the PDF at path.
func (e *Extractor) Text(ctx context.Context, path string) (string, error) {
	start := time.Now()
	log := common.LoggerWithRun(ctx, e.logger)

	pages, err := e.pageCount(path)
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, err)
	}
	if pages == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNoPages)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, log, e.args(path)...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("pdftotext %s: %w: %s", path, err, truncate(msg, 512))
		}
		return "", fmt.Errorf("pdftotext %s: %w", path, err)
	}

	text := Normalize(string(out))
	log.Debug("textextract.ok",
		"file", path,
		"pages", pages,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// args builds: pdftotext [-layout] [-l N] -enc UTF-8 -eol unix <path> -
func (e *Extractor) args(path string) []string {
	var args []string
	if e.cfg.Layout {
		args = append(args, "-layout")
	}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	return append(args, "-enc", "UTF-8", "-eol", "unix", path, "-")
}
