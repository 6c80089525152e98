package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// NewFileTestDB creates a file-backed database in a temp directory. Every
// pooled connection sees the same data, which concurrency tests need.
func NewFileTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(filepath.Join(t.TempDir(), "ascent_test.db"))
	require.NoError(t, err, "failed to create file test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// NewTestUoW creates a UnitOfWork backed by the given test database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

// ChildPositions returns the stored position of each child of parentID,
// keyed by id. An empty parentID selects the ranges.
func ChildPositions(t *testing.T, database *sql.DB, parentID string) map[string]int {
	t.Helper()
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == "" {
		rows, err = database.Query(`SELECT id, position FROM nodes WHERE parent_id IS NULL`)
	} else {
		rows, err = database.Query(`SELECT id, position FROM nodes WHERE parent_id = ?`, parentID)
	}
	require.NoError(t, err)
	defer rows.Close()

	positions := make(map[string]int)
	for rows.Next() {
		var id string
		var pos int
		require.NoError(t, rows.Scan(&id, &pos))
		positions[id] = pos
	}
	require.NoError(t, rows.Err())
	return positions
}

// RequireContiguous fails the test unless the children of parentID hold
// positions 0..n-1 exactly once each.
func RequireContiguous(t *testing.T, database *sql.DB, parentID string) {
	t.Helper()
	positions := ChildPositions(t, database, parentID)
	seen := make([]bool, len(positions))
	for id, pos := range positions {
		require.Truef(t, pos >= 0 && pos < len(seen), "node %s has position %d among %d siblings", id, pos, len(seen))
		require.Falsef(t, seen[pos], "position %d is held twice under %q", pos, parentID)
		seen[pos] = true
	}
}
