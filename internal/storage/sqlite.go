// Package storage provides the persistent per-account key-value registry.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"botfarm/pkg/retry"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRegistry implements core.IKeyRegistry on a local SQLite database.
// It holds confirmation secrets and one-shot acknowledgement flags.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens (and if needed initializes) the registry
// database at dbPath.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS secrets (
	account TEXT NOT NULL PRIMARY KEY,
	secret  BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);
CREATE TABLE IF NOT EXISTS acks (
	account TEXT NOT NULL,
	key     TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (unixepoch()),
	PRIMARY KEY (account, key)
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}

// GetSecret returns the confirmation secret for account, or nil when no
// secret is stored.
func (s *SQLiteRegistry) GetSecret(ctx context.Context, account string) ([]byte, error) {
	var secret []byte
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			"SELECT secret FROM secrets WHERE account = ?", account)
		return row.Scan(&secret)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret for %s: %w", account, err)
	}
	return secret, nil
}

// SetSecret stores or replaces the confirmation secret for account.
func (s *SQLiteRegistry) SetSecret(ctx context.Context, account string, secret []byte) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO secrets (account, secret, updated_at) VALUES (?, ?, unixepoch())
			 ON CONFLICT(account) DO UPDATE SET secret = excluded.secret, updated_at = excluded.updated_at`,
			account, secret)
		return err
	})
}

// GetAck reports whether the acknowledgement flag is set for account.
func (s *SQLiteRegistry) GetAck(ctx context.Context, account string, key string) (bool, error) {
	var one int
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			"SELECT 1 FROM acks WHERE account = ? AND key = ?", account, key)
		return row.Scan(&one)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read ack %s for %s: %w", key, account, err)
	}
	return true, nil
}

// SetAck sets the acknowledgement flag for account. Setting an already
// set flag is a no-op.
func (s *SQLiteRegistry) SetAck(ctx context.Context, account string, key string) error {
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO acks (account, key) VALUES (?, ?)", account, key)
		return err
	})
}

// withRetry retries on SQLITE_BUSY, which surfaces under concurrent WAL
// writers.
func (s *SQLiteRegistry) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, retry.DefaultPolicy, isBusy, fn)
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
