// Package dbx is the thin seam between the credential repositories and
// database/sql. Repositories program against DBTX so the same code runs
// either directly on the pool or inside a transaction a service opened
// with WithTx.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the handle the user, password-history, and verification-code
// repositories operate on. *sql.DB and *sql.Tx both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil,
// rollback when it returns an error or panics. Panics are rethrown after
// the rollback. Services use it to make multi-repository workflows (for
// example a credential update plus its history append) atomic:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return repos.Users(tx).Unlock(ctx, userID)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
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

	err = fn(ctx, tx)
	return err
}
