package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to store_metadata when the schema is created.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes in one transaction.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"declarations", createDeclarationsTable},
		{"store_metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from store_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createFilesTable = `
CREATE TABLE files (
    file_path TEXT PRIMARY KEY,          -- relative slash path from the project root
    grammar TEXT NOT NULL,
    file_hash TEXT NOT NULL,             -- SHA-256 hex
    size_bytes INTEGER NOT NULL,
    last_modified TEXT NOT NULL,         -- RFC3339Nano
    scanned_at TEXT NOT NULL,            -- RFC3339
    salvaged INTEGER NOT NULL DEFAULT 0,
    advisory_count INTEGER NOT NULL DEFAULT 0
)`

const createDeclarationsTable = `
CREATE TABLE declarations (
    id TEXT PRIMARY KEY,                 -- uuid
    file_path TEXT NOT NULL REFERENCES files(file_path) ON DELETE CASCADE,
    parent_id TEXT REFERENCES declarations(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    qualified_name TEXT NOT NULL,
    trait TEXT NOT NULL DEFAULT '',
    target TEXT NOT NULL DEFAULT '',
    receiver TEXT NOT NULL DEFAULT '',
    generics TEXT NOT NULL DEFAULT '',   -- comma separated parameter names
    signature TEXT NOT NULL,
    doc TEXT NOT NULL DEFAULT '',
    start_byte INTEGER NOT NULL,
    end_byte INTEGER NOT NULL,
    line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    depth INTEGER NOT NULL,
    salvaged INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL            -- preorder position within the file
)`

const createMetadataTable = `
CREATE TABLE store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

var indexes = []string{
	"CREATE INDEX idx_declarations_file ON declarations(file_path, position)",
	"CREATE INDEX idx_declarations_name ON declarations(name)",
	"CREATE INDEX idx_declarations_kind ON declarations(kind)",
	"CREATE INDEX idx_declarations_target ON declarations(target)",
	"CREATE INDEX idx_declarations_parent ON declarations(parent_id)",
}
