package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	return NewDB(sqlDB, zap.NewNop())
}

func countItems(t *testing.T, db *DB) int {
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n))
	return n
}

func TestWithTransaction_Commits(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		_, err := ExecutorFrom(ctx, db.DB).ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := db.WithTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := ExecutorFrom(ctx, db.DB).ExecContext(ctx, "INSERT INTO items (name) VALUES ('a')"); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTransaction_NestedReusesOuter(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(context.Background(), func(outer context.Context) error {
		return db.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, extractTx(outer), extractTx(inner))
			return nil
		})
	})

	require.NoError(t, err)
}

func TestExecutorFrom_WithoutTransaction(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, Executor(db.DB), ExecutorFrom(context.Background(), db.DB))
}
