package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) (*sql.DB, *db.SQLiteUnitOfWork) {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, db.NewSQLiteUnitOfWork(database)
}

func insertList(ctx context.Context, tx db.DBTX, id string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO task_lists (id, owner_id, name, created_at) VALUES (?, 'owner', 'Today', '2024-01-01T00:00:00Z')`, id)
	return err
}

func countLists(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM task_lists`).Scan(&n))
	return n
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	database, uow := openTestDB(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertList(ctx, tx, "l1"); err != nil {
			return err
		}
		return insertList(ctx, tx, "l2")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countLists(t, database))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	database, uow := openTestDB(t)

	boom := errors.New("deliberate failure")
	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		if err := insertList(ctx, tx, "l1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countLists(t, database), "insert must not survive rollback")
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	database, uow := openTestDB(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = insertList(ctx, tx, "l1")
			panic("boom")
		})
	})
	assert.Equal(t, 0, countLists(t, database))
}

func TestWithinTx_CancelledContext(t *testing.T) {
	_, uow := openTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return insertList(ctx, tx, "l1")
	})
	assert.Error(t, err)
}

type countingTx struct {
	db.DBTX
	execs *int
}

func (c countingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	*c.execs++
	return c.DBTX.ExecContext(ctx, query, args...)
}

func TestWithinTx_WrapperSeesEveryTransaction(t *testing.T) {
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	var wrapped, execs int
	uow := db.NewSQLiteUnitOfWork(database, db.WithTxWrapper(func(tx db.DBTX) db.DBTX {
		wrapped++
		return countingTx{DBTX: tx, execs: &execs}
	}))

	for _, id := range []string{"l1", "l2"} {
		require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			return insertList(ctx, tx, id)
		}))
	}
	assert.Equal(t, 2, wrapped)
	assert.Equal(t, 2, execs)
	assert.Equal(t, 2, countLists(t, database))
}
