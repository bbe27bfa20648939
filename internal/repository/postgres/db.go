package postgres

import (
	"context"
	"database/sql"
	"errors"

	"checkout/internal/repository"
)

// Querier runs statements on the pool or inside a caller's transaction, so
// a repository can join a wider unit of work.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// inTx runs fn in its own transaction when db is set. Without a pool the
// repository is already bound to a caller's transaction and fn runs on q.
func inTx(ctx context.Context, db *sql.DB, q Querier, fn func(q Querier) error) (err error) {
	if db == nil {
		return fn(q)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// notFound maps a missing row to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// requireRows reports repository.ErrNotFound for an update that touched
// nothing.
func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
