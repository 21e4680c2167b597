package main

import (
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/posform-export/internal/app"
	"github.com/joseph-ayodele/posform-export/internal/common"
)

// rootOpts holds the persistent flags. Empty values keep the configured setting.
var rootOpts struct {
	logLevel  string
	logFormat string
	history   string
	noHistory bool
	patterns  string
}

var rootCmd = &cobra.Command{
	Use:   "posform",
	Short: "Convert folders of POS registration PDFs into spreadsheets",
	Long: `posform reads every PDF in a folder, extracts the merchant and terminal
fields of each registration form and writes them to one spreadsheet per folder.

Settings come from built-in defaults, the TOML file named by POSFORM_CONFIG and
environment variables, in that order. Flags override all of them.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootOpts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&rootOpts.logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&rootOpts.history, "history", "", "run history DSN (sqlite://path or postgres://...)")
	pf.BoolVar(&rootOpts.noHistory, "no-history", false, "do not record runs")
	pf.StringVar(&rootOpts.patterns, "patterns", "", "JSON file overriding the built-in field rules")
}

// loadConfig layers the persistent flags over common.LoadConfig.
func loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if rootOpts.logLevel != "" {
		cfg.Log.Level = rootOpts.logLevel
	}
	if rootOpts.logFormat != "" {
		cfg.Log.Format = rootOpts.logFormat
	}
	if rootOpts.history != "" {
		cfg.History.DSN = rootOpts.history
	}
	if rootOpts.noHistory {
		cfg.History.DSN = ""
	}
	if rootOpts.patterns != "" {
		cfg.Pipeline.Patterns = rootOpts.patterns
	}
	return cfg, nil
}

// openApp builds the conversion stack for cmd. Logs go to the command's
// stderr so table output on stdout stays clean. tweak may adjust the
// config before it is validated.
func openApp(cmd *cobra.Command, tweak func(*common.Config)) (*app.App, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if tweak != nil {
		tweak(cfg)
	}
	logger := common.NewLogger(cfg.Log, cmd.ErrOrStderr())
	a, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

// syncWriter serializes writes from folder workers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
