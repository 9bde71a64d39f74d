// Package storage persists declaration catalogs in SQLite so they can be
// queried without rescanning.
//
// Each scanned file owns one row in files and one row per declaration in
// declarations. Writing a file replaces all of its rows in a single
// transaction; foreign keys cascade the delete to its declarations.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

// Store is the declaration database.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// Open opens (creating if needed) the store at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, ownsDB: true}, nil
}

// NewStoreWithDB wraps an existing connection whose schema is already
// created. The caller owns the connection.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection if owned by this store.
func (s *Store) Close() error {
	if !s.ownsDB || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}
	switch version {
	case "0":
		return CreateSchema(db)
	case SchemaVersion:
		return nil
	default:
		return fmt.Errorf("unsupported store schema version %s (want %s); delete the store and re-index", version, SchemaVersion)
	}
}
