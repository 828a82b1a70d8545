package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the journal at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "could not open journal database").
			WithContext("path", dbPath).
			Build()
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryJournal, "failed to initialize journal schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		trigger_path TEXT NOT NULL DEFAULT '',
		started INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		changed TEXT NOT NULL,
		unchanged INTEGER NOT NULL,
		dropped INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds an entry.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := e.Changed
	if changed == nil {
		changed = []string{}
	}
	changedJSON, err := json.Marshal(changed)
	if err != nil {
		return errors.WrapError(err, errors.CategoryJournal, "failed to marshal changed outputs").Build()
	}
	if e.Started.IsZero() {
		e.Started = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, kind, trigger_path, started, duration_ns, changed, unchanged, dropped, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BuildID, e.Kind, e.Trigger, e.Started.UnixNano(), int64(e.Duration), string(changedJSON),
		e.Unchanged, e.Dropped, e.Error,
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryJournal, "failed to append journal entry").
			WithContext("build_id", e.BuildID).
			Build()
	}
	return nil
}

// Recent returns up to n entries, newest first. n <= 0 returns everything.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, build_id, kind, trigger_path, started, duration_ns, changed, unchanged, dropped, error
		 FROM builds ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "failed to query journal").Build()
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			started     int64
			durationNS  int64
			changedJSON string
		)
		if err := rows.Scan(&e.ID, &e.BuildID, &e.Kind, &e.Trigger, &started, &durationNS,
			&changedJSON, &e.Unchanged, &e.Dropped, &e.Error); err != nil {
			return nil, errors.WrapError(err, errors.CategoryJournal, "failed to scan journal row").Build()
		}
		e.Started = time.Unix(0, started)
		e.Duration = time.Duration(durationNS)
		if err := json.Unmarshal([]byte(changedJSON), &e.Changed); err != nil {
			return nil, errors.WrapError(err, errors.CategoryJournal, "failed to unmarshal changed outputs").Build()
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "failed to iterate journal rows").Build()
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
