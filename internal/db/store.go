package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding the local message archive
type Store struct {
	db *sql.DB
}

// migrations are applied in order; index i moves user_version from i to i+1
var migrations = []string{
	// v1: archived messages
	`
CREATE TABLE IF NOT EXISTS archived_messages (
  account_email  TEXT NOT NULL,
  message_key    TEXT NOT NULL,
  sender_address TEXT NOT NULL,
  sender_name    TEXT NOT NULL DEFAULT '',
  subject        TEXT NOT NULL DEFAULT '',
  sent_at        INTEGER NOT NULL,
  html           TEXT NOT NULL DEFAULT '',
  saved_at       INTEGER NOT NULL,
  PRIMARY KEY (account_email, message_key)
);
CREATE INDEX IF NOT EXISTS idx_archived_messages_saved_at ON archived_messages(saved_at);
`,
	// v2: attachment metadata
	`
CREATE TABLE IF NOT EXISTS archived_attachments (
  account_email  TEXT NOT NULL,
  message_key    TEXT NOT NULL,
  attachment_key TEXT NOT NULL,
  filename       TEXT NOT NULL DEFAULT '',
  size           INTEGER NOT NULL DEFAULT 0,
  position       INTEGER NOT NULL,
  PRIMARY KEY (account_email, message_key, attachment_key)
);
`,
}

// SchemaVersion is the user_version of a fully migrated database
var SchemaVersion = len(migrations)

// Open opens (and creates/migrates) the database at the given path
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Ensure file exists with strict perms
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		f, err := os.OpenFile(dbPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create database file: %w", err)
		}
		f.Close()
	}
	// busy_timeout and foreign_keys are per connection, so they ride on the DSN
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	for ; ver < len(migrations); ver++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, migrations[ver])
		if err == nil {
			_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d;", ver+1))
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v%d: %w", ver+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for use by domain stores
func (s *Store) DB() *sql.DB {
	return s.db
}
