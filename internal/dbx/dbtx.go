// Package dbx is the transaction plumbing under the repositories.
package dbx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// maxTxAttempts bounds how often WithTx reruns a transaction that Postgres
// aborted for a serialization failure or a deadlock.
const maxTxAttempts = 3

const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

// DBTX is what a repository statement runs on: *sql.DB or *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is the body of a transaction. It may run more than once, so it must
// not have effects outside tx other than assigning its results.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx runs fn in a transaction and commits when it returns nil. Row-lock
// contention between sessions and account changes can make Postgres abort
// one side; those aborts are retried with a fresh transaction.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTx(ctx, db, opts, fn)
		if err == nil || !Retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// Retryable reports whether err is a transaction abort that succeeds when
// the whole transaction is run again.
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}
