package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	c, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() }) //nolint:errcheck
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func TestSQLite_PutIfAbsent(t *testing.T) {
	exerciseCache(t, newTestSQLiteCache(t))
}

func TestSQLite_ConcurrentPuts(t *testing.T) {
	exerciseConcurrentPuts(t, newTestSQLiteCache(t))
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	c := newTestSQLiteCache(t)
	require.NoError(t, c.Migrate(context.Background()))
}
