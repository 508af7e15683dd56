// Package postgres provides the PostgreSQL executor for the wisp data mapper.
// This file adapts pgx.Tx to the core.Transaction contract.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// pgxTransaction wraps a pgx.Tx so it satisfies core.Transaction and the
// Executor can route statements through it when the context carries one.
type pgxTransaction struct {
	tx pgx.Tx
}

// Commit finalizes the transaction.
func (t *pgxTransaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction.
func (t *pgxTransaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
