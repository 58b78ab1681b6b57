// Package dbtest provides an in-memory bun database for store tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"travyy/internal/database"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// New returns a fresh sqlite database with the full schema.
func New(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and visible to every query.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), db))

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
