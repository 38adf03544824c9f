// Package store persists search results, pivot suggestions, funders and the
// reply action log in a single sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a result id does not exist
var ErrNotFound = errors.New("result not found")

// fixed width so that timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store is the sqlite-backed result store. Writes are serialized so that the
// (project_id, url) check-then-write is atomic across goroutines and jobs.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and migrates the schema
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps pragmas and the write lock in one place
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id        TEXT NOT NULL,
	segment_id        TEXT,
	angle_type        TEXT,
	query             TEXT,
	title             TEXT NOT NULL,
	url               TEXT NOT NULL,
	snippet           TEXT,
	source            TEXT,
	score             REAL,
	discovered_at     TEXT NOT NULL,
	summary           TEXT,
	grant_amount      TEXT,
	deadline          TEXT,
	eligibility_notes TEXT,
	topic_match       TEXT,
	contact_info      TEXT,
	is_new_funder     INTEGER NOT NULL DEFAULT 0,
	is_open           TEXT,
	funder_type       TEXT,
	UNIQUE(project_id, url)
);

CREATE TABLE IF NOT EXISTS pivot_suggestions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id       TEXT NOT NULL,
	segment_id       TEXT,
	suggestion       TEXT NOT NULL,
	source_result_id INTEGER,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	kind       TEXT NOT NULL,
	result_id  INTEGER NOT NULL,
	subject    TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS funders (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	domain     TEXT NOT NULL UNIQUE,
	name       TEXT,
	first_seen TEXT NOT NULL,
	last_seen  TEXT NOT NULL,
	times_seen INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_results_project ON results(project_id, discovered_at);
CREATE INDEX IF NOT EXISTS idx_pivots_project ON pivot_suggestions(project_id, created_at);
`

// columns added after the first release; older databases get them via ALTER TABLE
var addedColumns = []struct{ table, column, decl string }{
	{"results", "raw_json", "TEXT"},
	{"results", "result_type", "TEXT"},
	{"results", "funder_id", "INTEGER"},
	{"results", "shown_in_digest", "TEXT"},
}

func (s *Store) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	for _, c := range addedColumns {
		if err := s.addColumnIfMissing(ctx, c.table, c.column, c.decl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func (s *Store) addColumnIfMissing(ctx context.Context, table, column, decl string) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	_, err = s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

func (s *Store) timestamp() string {
	return s.now().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
