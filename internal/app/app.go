package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/posform-export/internal/common"
	"github.com/joseph-ayodele/posform-export/internal/export"
	"github.com/joseph-ayodele/posform-export/internal/extract"
	"github.com/joseph-ayodele/posform-export/internal/pipeline"
	"github.com/joseph-ayodele/posform-export/internal/repository"
	"github.com/joseph-ayodele/posform-export/internal/services/convert"
	"github.com/joseph-ayodele/posform-export/internal/textextract"
)

// App is the wired conversion stack shared by the CLI and the daemon.
type App struct {
	Config  *common.Config
	Service *convert.Service
	db      *repository.DB
	logger  *slog.Logger
}

// Build loads the pattern set, opens the history store (unless disabled)
// and wires the pipeline.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	patterns := extract.DefaultPatternSet()
	if cfg.Pipeline.Patterns != "" {
		ps, err := extract.LoadPatternSet(cfg.Pipeline.Patterns)
		if err != nil {
			return nil, common.NewAppError(common.CodePattern, cfg.Pipeline.Patterns, err)
		}
		patterns = ps
		logger.Info("app.patterns.loaded", "path", cfg.Pipeline.Patterns, "fields", patterns.Names())
	}

	texts := textextract.NewExtractor(textextract.Config{
		Pdftotext: cfg.Text.Pdftotext,
		Layout:    cfg.Text.Layout,
		MaxPages:  cfg.Text.MaxPages,
	}, logger)
	p := pipeline.New(
		texts,
		extract.NewFieldExtractor(patterns, logger),
		export.NewXLSXSink(logger),
		logger,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithProgressEvery(cfg.Pipeline.ProgressEvery),
	)

	a := &App{Config: cfg, logger: logger}
	var runs repository.RunRepository
	if cfg.History.DSN != "" {
		db, err := repository.Open(ctx, repository.Config{DSN: cfg.History.DSN, MaxConns: cfg.History.MaxConns}, logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		runs = repository.NewRunRepository(db, logger)
	} else {
		logger.Info("app.history.disabled")
	}

	a.Service = convert.NewService(p, runs, logger)
	return a, nil
}

// Close releases the history store.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
