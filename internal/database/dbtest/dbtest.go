// Package dbtest provides an in-memory SQLite database with the service
// schema for store tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-visitors/internal/database"
	"ms-visitors/internal/database/migrations"
)

// New returns a fresh schema-initialised database closed at test cleanup.
func New(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db, err := database.NewBun(sqldb, database.DriverSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.CreateTables(context.Background(), db))
	return db
}
