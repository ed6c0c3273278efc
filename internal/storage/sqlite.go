package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_entries (
  id          TEXT PRIMARY KEY,
  sender_id   TEXT NOT NULL,
  message_id  TEXT NOT NULL,
  description TEXT NOT NULL,
  kind        TEXT NOT NULL,
  category    TEXT NOT NULL,
  country     TEXT NOT NULL,
  amount      TEXT NOT NULL,
  tax_rate    TEXT NOT NULL,
  tax_amount  TEXT NOT NULL,
  net_amount  TEXT NOT NULL,
  account_id  TEXT,
  created_at  INTEGER NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS rate_windows (
  sender_id       TEXT PRIMARY KEY,
  window_start_ms INTEGER NOT NULL,
  count           INTEGER NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS processed_messages (
  digest     TEXT PRIMARY KEY,
  reply      TEXT NOT NULL,
  created_at INTEGER NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS ledger_entries_sender_created_at_idx ON ledger_entries(sender_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS processed_messages_created_at_idx ON processed_messages(created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
