package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Mirror is a local SQLite copy of the memory sheet. It exists so recall
// degrades gracefully when the spreadsheet API is down; the sheet remains
// the source of truth.
type Mirror struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewMirror opens (and migrates) the mirror database at the given path.
func NewMirror(dbPath string) (*Mirror, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create mirror dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}

	m := &Mirror{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate mirror database: %w", err)
	}

	return m, nil
}

func (m *Mirror) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts TEXT NOT NULL,
		author TEXT NOT NULL,
		note TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notes_ts ON notes(ts);
	`

	_, err := m.db.Exec(schema)
	return err
}

// Append inserts a record. Records are never updated or deleted.
func (m *Mirror) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.db.ExecContext(ctx,
		`INSERT INTO notes (ts, author, note) VALUES (?, ?, ?)`,
		rec.Timestamp, rec.Author, rec.Note,
	)
	return err
}

// Search returns the most recent limit records whose note contains the
// query, case-insensitively, oldest first.
func (m *Mirror) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT ts, author, note FROM (
			SELECT id, ts, author, note FROM notes
			WHERE note LIKE '%' || ? || '%' COLLATE NOCASE
			ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("mirror query failed: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Recent returns the last limit records, oldest first.
func (m *Mirror) Recent(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT ts, author, note FROM (
			SELECT id, ts, author, note FROM notes ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("mirror query failed: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Timestamp, &rec.Author, &rec.Note); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
