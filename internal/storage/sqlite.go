package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"student-chatter/internal/storage/migrations"
	"student-chatter/internal/storage/sqlitemigrate"
)

// timeLayout matches the strftime format used by the column defaults.
const timeLayout = "2006-01-02T15:04:05.000Z"

// nowExpr yields the current UTC time, never earlier than the newest row of
// the given table, so timestamps stay non-decreasing even if the clock steps back.
const nowExpr = `max(strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now'), COALESCE((SELECT MAX(created_at) FROM %s), ''))`

// SQLiteStore keeps students, audit entries and chats in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ StudentStore = (*SQLiteStore)(nil)
	_ AuditLog     = (*SQLiteStore)(nil)
	_ Recorder     = (*SQLiteStore)(nil)
)

// Open creates the database file if needed, configures the connection and
// applies pending migrations.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps the pragmas below in effect.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.configure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := sqlitemigrate.Apply(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Debug().Str("path", path).Msg("sqlite store ready")
	return s, nil
}

func (s *SQLiteStore) configure(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return ts, nil
}
