package tx

import (
	"context"
	"database/sql"
	"fmt"
)

// Runner scopes a function to one atomic unit of work. The SQL
// implementation opens a database transaction and carries it in context for
// the stores; the passthrough implementation backs memory stores and tests.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs functions inside a database/sql transaction.
type SQLRunner struct {
	db *sql.DB
}

// NewSQLRunner constructs a transaction runner over the given database.
func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

// RunInTx begins a transaction, stores it in the context passed to fn, and
// commits on success or rolls back on error or panic.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// PassthroughRunner runs the function directly with no transaction.
type PassthroughRunner struct{}

// NewPassthroughRunner constructs a no-op transaction runner.
func NewPassthroughRunner() *PassthroughRunner {
	return &PassthroughRunner{}
}

func (PassthroughRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
