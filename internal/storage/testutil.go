package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory store with the full schema for testing.
// Cleanup is registered with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    store := storage.NewTestDB(t)
//	    // ... test code ...
//	}
func NewTestDB(t testing.TB) *Store {
	t.Helper()

	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

// NewTestDBFile creates a file-backed store in t.TempDir(), for tests that
// reopen the database.
func NewTestDBFile(t testing.TB) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "declarations.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, path
}
