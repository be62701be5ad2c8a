// Package repositorytest provides database fixtures for tests.
package repositorytest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/repository"
)

// NewSQLiteDB returns a migrated in-memory SQLite database that is closed
// when the test ends.
func NewSQLiteDB(t *testing.T) *repository.DB {
	t.Helper()

	logger := zap.NewNop()

	db, err := repository.NewSQLiteDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.MigrateDB(db, logger))

	return db
}
