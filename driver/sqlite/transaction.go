// Package sqlite provides the SQLite executor for the wisp data mapper.
// This file adapts *sql.Tx to the core.Transaction contract.
package sqlite

import (
	"context"
	"database/sql"
)

// sqlTransaction wraps a *sql.Tx so it satisfies core.Transaction and the
// Executor can route statements through it when the context carries one.
type sqlTransaction struct {
	tx *sql.Tx
}

// Commit finalizes the transaction.
func (t *sqlTransaction) Commit(ctx context.Context) error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *sqlTransaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback()
}
