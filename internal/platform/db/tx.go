package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Querier is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx.
// Repositories resolve their connection through it so the same code runs
// inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Runner starts transactions scoped to a context. Services depend on this
// interface rather than the pool so tests can substitute a pass-through.
type Runner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Handle wraps a connection pool as a Runner.
type Handle struct {
	pool *pgxpool.Pool
}

func NewHandle(pool *pgxpool.Pool) *Handle {
	return &Handle{pool: pool}
}

// WithTx runs fn inside a transaction carried on the context. Every
// repository write and audit row issued through QuerierFromContext within fn
// commits or rolls back as one unit. A nested call joins the outer
// transaction instead of opening a second one.
func (h *Handle) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if QuerierFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	ctx = context.WithValue(ctx, txKey, tx)
	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// QuerierFromContext retrieves the transaction bound to ctx, or nil when the
// caller is not inside WithTx.
func QuerierFromContext(ctx context.Context) Querier {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	if tx == nil {
		return nil
	}
	return tx
}
