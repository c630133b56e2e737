// Package index provides the SQLite-backed link-graph store: which files
// were scanned, which UUIDs they declare, and which UUIDs they reference.
// Document content is never stored.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	kind       TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	indexed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS uuids (
	uuid  TEXT PRIMARY KEY,
	path  TEXT NOT NULL,
	type  TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS refs (
	uuid        TEXT NOT NULL,
	source      TEXT NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 1,
	UNIQUE(uuid, source)
);

CREATE INDEX IF NOT EXISTS idx_uuids_type ON uuids(type);
CREATE INDEX IF NOT EXISTS idx_refs_uuid ON refs(uuid);
CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source);
`

// DB wraps a sql.DB with link-graph operations.
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
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
