// Package index provides a SQLite-backed index of a document tree walk:
// documents, the references between them and the assets they use, with
// optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	type       TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS refs (
	source  TEXT NOT NULL,
	field   TEXT NOT NULL,
	pointer TEXT NOT NULL,
	target  TEXT NOT NULL DEFAULT '',
	UNIQUE(source, field, pointer)
);

CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target);

CREATE TABLE IF NOT EXISTS assets (
	source   TEXT NOT NULL,
	location TEXT NOT NULL,
	local    INTEGER NOT NULL DEFAULT 1,
	target   TEXT NOT NULL DEFAULT '',
	UNIQUE(source, location)
);

CREATE INDEX IF NOT EXISTS idx_assets_target ON assets(target);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
