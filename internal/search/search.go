// Package search maintains a derived full-text index of note content in
// SQLite, using FTS5 when compiled with the sqlite_fts5 build tag and a LIKE
// fallback otherwise.
//
// The index is a sidecar: it is rebuilt from the workspace at boot and holds
// no authoritative state, which is why the default DSN keeps it in memory.
// The graph remains the source of truth for notes and links.
package search

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body  TEXT NOT NULL DEFAULT ''
);
`

// Result is a single search hit.
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Index is the search surface consumed by the note service. Consumers should
// depend on this interface rather than the concrete *DB type.
type Index interface {
	Upsert(id, title, body string) error
	Query(query string, limit int) ([]Result, error)
	Close() error
}

// DB implements Index on SQLite.
type DB struct {
	conn *sql.DB
}

var _ Index = (*DB)(nil)

// Open opens the search database at path, or an in-memory database when path
// is empty, and applies the schema.
func Open(path string) (*DB, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("search: open db: %w", err)
	}
	// A single connection keeps the in-memory database coherent across the
	// pool and serializes writers.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Upsert inserts or replaces the searchable text for a note.
func (db *DB) Upsert(id, title, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO notes (id, title, body) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, body = excluded.body
	`, id, title, body); err != nil {
		return fmt.Errorf("search: upsert note: %w", err)
	}
	if err := ftsUpsert(tx, id, title, body); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: commit: %w", err)
	}
	return nil
}
