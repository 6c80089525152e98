package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/alexanderramin/ascent/internal/db"
)

// NewFailOnNthExecUoW returns a UnitOfWork whose transactions fail the nth
// ExecContext call (counted from 1, per transaction) with err. Reads pass
// through, so a reorder or a promotion can be cut off halfway and checked
// for rollback.
func NewFailOnNthExecUoW(database *sql.DB, n int32, err error) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database, db.WithTxWrapper(func(tx db.DBTX) db.DBTX {
		return &failOnNthExec{DBTX: tx, failOn: n, err: err}
	}))
}

type failOnNthExec struct {
	db.DBTX
	count  atomic.Int32
	failOn int32
	err    error
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.count.Add(1) == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
