package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/posform-export/internal/common"
)

type Config struct {
	DSN         string // sqlite://path, file:path or postgres://...
	MaxConns    int32
	DialTimeout time.Duration
}

// DB is an ent SQL driver over either SQLite or PostgreSQL.
type DB struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to the history store named by cfg.DSN and creates its
// tables if needed.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	var (
		db  *DB
		err error
	)
	switch dsn := strings.TrimSpace(cfg.DSN); {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err = openPostgres(ctx, dsn, cfg, logger)
	case strings.HasPrefix(dsn, "sqlite://"):
		db, err = openSQLite(strings.TrimPrefix(dsn, "sqlite://"), logger)
	case strings.HasPrefix(dsn, "file:"):
		db, err = openSQLite(strings.TrimPrefix(dsn, "file:"), logger)
	default:
		return nil, fmt.Errorf("unsupported history dsn %q", dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := db.migrate(ctx); err != nil {
		db.Close()
		return nil, common.WrapError(err, "migrate history")
	}
	return db, nil
}

func openPostgres(ctx context.Context, dsn string, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("history.connect", "backend", "postgres")
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "posform-export"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Wrap pool as *sql.DB for ent
	drv := entsql.OpenDB(dialect.Postgres, stdlib.OpenDBFromPool(pool))
	return &DB{drv: drv, pool: pool, logger: logger}, nil
}

func openSQLite(path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite dsn has no path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	logger.Info("history.connect", "backend", "sqlite", "path", path)

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	return &DB{drv: entsql.OpenDB(dialect.SQLite, sqlDB), logger: logger}, nil
}

// Dialect is the ent dialect name of the open backend.
func (db *DB) Dialect() string {
	return db.drv.Dialect()
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	if err := db.drv.Close(); err != nil {
		db.logger.Error("history.close.failed", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// HealthCheck pings the backend.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.drv.DB().PingContext(ctx)
}
