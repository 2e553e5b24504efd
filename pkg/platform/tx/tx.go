// Package tx carries a storage transaction through context so stores can join
// an in-flight transaction without threading handles through every signature.
// Cross-entity operations (approve touching both reserve and activity) rely on
// this boundary for all-or-nothing semantics.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes a function inside a transaction boundary. Services depend
// on this interface so they stay agnostic of the storage substrate.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
