package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline"`
	Text     TextConfig     `toml:"text"`
	History  HistoryConfig  `toml:"history"`
	Server   ServerConfig   `toml:"server"`
	Watch    WatchConfig    `toml:"watch"`
	Log      LogConfig      `toml:"log"`
}

// PipelineConfig sizes the conversion pools.
type PipelineConfig struct {
	Workers       int    `toml:"workers"`        // documents in flight per folder
	FolderWorkers int    `toml:"folder_workers"` // folders in flight
	ProgressEvery int    `toml:"progress_every"`
	Patterns      string `toml:"patterns"` // optional JSON pattern file
}

// TextConfig configures the pdftotext source.
type TextConfig struct {
	Pdftotext string `toml:"pdftotext"`
	Layout    bool   `toml:"layout"`
	MaxPages  int    `toml:"max_pages"`
}

// HistoryConfig selects the run history store. An empty DSN disables it.
type HistoryConfig struct {
	DSN      string `toml:"dsn"`
	MaxConns int32  `toml:"max_conns"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `toml:"grpc_addr"`
}

type WatchConfig struct {
	Debounce Duration `toml:"debounce"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug | info | warn | error
	Format string `toml:"format"` // text | json
}

// Duration decodes TOML strings such as "2s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{Workers: 4, FolderWorkers: 2, ProgressEvery: 5},
		Text:     TextConfig{Pdftotext: "pdftotext"},
		History:  HistoryConfig{DSN: "sqlite://./posform.db", MaxConns: 4},
		Server:   ServerConfig{GRPCAddr: ":8080"},
		Watch:    WatchConfig{Debounce: Duration(2 * time.Second)},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig starts from the defaults, applies the TOML file named by
// POSFORM_CONFIG if set, then applies environment overrides.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("POSFORM_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse %s", path), err)
		}
	}

	cfg.Pipeline.Workers = getEnvAsInt("POSFORM_WORKERS", cfg.Pipeline.Workers)
	cfg.Pipeline.FolderWorkers = getEnvAsInt("POSFORM_FOLDER_WORKERS", cfg.Pipeline.FolderWorkers)
	cfg.Pipeline.ProgressEvery = getEnvAsInt("POSFORM_PROGRESS_EVERY", cfg.Pipeline.ProgressEvery)
	cfg.Pipeline.Patterns = getEnv("POSFORM_PATTERNS", cfg.Pipeline.Patterns)
	cfg.Text.Pdftotext = getEnv("PDFTOTEXT_BIN", cfg.Text.Pdftotext)
	cfg.Text.Layout = getEnvAsBool("PDFTOTEXT_LAYOUT", cfg.Text.Layout)
	cfg.Text.MaxPages = getEnvAsInt("POSFORM_MAX_PAGES", cfg.Text.MaxPages)
	if dsn, ok := os.LookupEnv("HISTORY_DSN"); ok {
		cfg.History.DSN = strings.TrimSpace(dsn)
	}
	cfg.History.MaxConns = getEnvAsInt32("HISTORY_MAX_CONNS", cfg.History.MaxConns)
	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Watch.Debounce = Duration(getEnvAsDuration("WATCH_DEBOUNCE", time.Duration(cfg.Watch.Debounce)))
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	return NewValidator().
		Field("pipeline.workers", c.Pipeline.Workers, AtLeast(1)).
		Field("pipeline.folder_workers", c.Pipeline.FolderWorkers, AtLeast(1)).
		Field("pipeline.progress_every", c.Pipeline.ProgressEvery, AtLeast(1)).
		Field("text.pdftotext", c.Text.Pdftotext, Required).
		Field("text.max_pages", c.Text.MaxPages, AtLeast(0)).
		Field("server.grpc_addr", c.Server.GRPCAddr, Required).
		Field("watch.debounce", int(time.Duration(c.Watch.Debounce).Milliseconds()), AtLeast(0)).
		Field("log.level", c.Log.Level, OneOf("debug", "info", "warn", "error")).
		Field("log.format", c.Log.Format, OneOf("text", "json")).
		AppError(CodeConfig)
}
