package db

import (
	"context"
	"database/sql"
)

// DBTX is the common interface satisfied by both the pooled connection and
// an open transaction. Repositories depend on this instead of *sql.DB so a
// service can run several of them inside one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
	_ DBTX = (*DB)(nil)
	_ DBTX = (*boundTx)(nil)
)

// boundTx rewrites placeholders for the dialect before delegating to the tx.
type boundTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (b *boundTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.tx.ExecContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *boundTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.tx.QueryContext(ctx, b.dialect.Rebind(query), args...)
}

func (b *boundTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return b.tx.QueryRowContext(ctx, b.dialect.Rebind(query), args...)
}
