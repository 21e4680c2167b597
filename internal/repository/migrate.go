package repository

import (
	"context"
)

const (
	tableRuns     = "runs"
	tableFailures = "run_failures"
)

// schema is plain DDL valid on both SQLite and PostgreSQL. Timestamps are
// stored as fixed-width text so ordering is lexical on every backend.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableRuns + ` (
	id          TEXT    NOT NULL PRIMARY KEY,
	folder      TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	row_count   INTEGER NOT NULL DEFAULT 0,
	table_file  TEXT,
	summary     TEXT,
	started_at  TEXT    NOT NULL,
	finished_at TEXT
)`,
	`CREATE TABLE IF NOT EXISTS ` + tableFailures + ` (
	run_id    TEXT NOT NULL,
	file_name TEXT NOT NULL,
	error     TEXT,
	PRIMARY KEY (run_id, file_name)
)`,
	`CREATE INDEX IF NOT EXISTS runs_folder_started_at ON ` + tableRuns + ` (folder, started_at)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}
	return nil
}
