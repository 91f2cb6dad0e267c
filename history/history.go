package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ============================================================================
// QUERY HISTORY — SQLite-backed log of answered questions
// ============================================================================
// Every answered query is appended with its detected intent and execution
// stats. The store is append-only from the application's point of view;
// Recent reads newest-first for the history endpoint and the CLI.
// ============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS query_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	asked_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	question     TEXT NOT NULL,
	intent       TEXT NOT NULL,
	rows_scanned INTEGER NOT NULL,
	exec_time_ms REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_history_asked_at ON query_history(asked_at);
`

// Entry is one logged question.
type Entry struct {
	ID          int64     `json:"id"`
	AskedAt     time.Time `json:"asked_at"`
	Question    string    `json:"question"`
	Intent      string    `json:"intent"`
	RowsScanned int       `json:"rows_scanned"`
	ExecTimeMS  float64   `json:"exec_time_ms"`
}

// Store persists query history in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one entry. AskedAt defaults to now when zero.
func (s *Store) Record(ctx context.Context, e Entry) error {
	askedAt := e.AskedAt
	if askedAt.IsZero() {
		askedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (asked_at, question, intent, rows_scanned, exec_time_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		askedAt, e.Question, e.Intent, e.RowsScanned, e.ExecTimeMS)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asked_at, question, intent, rows_scanned, exec_time_ms
		 FROM query_history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AskedAt, &e.Question, &e.Intent, &e.RowsScanned, &e.ExecTimeMS); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
