package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath = "data/hedj.db"
	// fixed width so stored timestamps sort lexically in time order
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store wraps a SQLite DB connection.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; the history is append-only and runs never overlap
	db.SetMaxOpenConns(1)
	if err := ensureWAL(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the observations and opportunities tables exist.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes both tables.
func (s *Store) DropTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS observations; DROP TABLE IF EXISTS opportunities;`)
	return err
}

// ClearTables truncates both tables.
func (s *Store) ClearTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM observations; DELETE FROM opportunities;`)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS observations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp_utc TEXT NOT NULL,
	book TEXT NOT NULL,
	sport TEXT NOT NULL,
	event_id TEXT NOT NULL,
	event_start_time TEXT,
	home_team TEXT,
	away_team TEXT,
	market_type TEXT NOT NULL,
	outcome TEXT NOT NULL,
	price INTEGER NOT NULL,
	line REAL
);
CREATE INDEX IF NOT EXISTS observations_ts_idx ON observations(timestamp_utc);
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	opportunity_key TEXT NOT NULL,
	key_hash TEXT NOT NULL,
	sport TEXT,
	event_id TEXT,
	market TEXT,
	headline TEXT,
	metric REAL,
	observed_at TEXT,
	detected_at TEXT NOT NULL,
	raw_json TEXT
);
CREATE INDEX IF NOT EXISTS opportunities_key_idx ON opportunities(key_hash, detected_at);
`

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
