package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", "activity_log").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "activity_log not found")

	require.NoError(t, db.RunMigrations(), "migrations must be re-runnable")
}

func TestNew_CreatesJournalDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	db, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	require.FileExists(t, path)
}

func TestFilePath(t *testing.T) {
	require.Empty(t, filePath(":memory:"))
	require.Empty(t, filePath("file::memory:?cache=shared"))
	require.Equal(t, "data/journal.db", filePath("data/journal.db"))
	require.Equal(t, "data/journal.db", filePath("file:data/journal.db?_pragma=busy_timeout(5000)"))
}
