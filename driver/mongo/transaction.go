// Package mongo provides the MongoDB executor for the wisp data mapper.
// This file adapts a session-backed transaction to the core.Transaction
// contract.
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// mongoTransaction wraps a mongo.Session so it satisfies
// core.Transaction. The session ends on either outcome.
type mongoTransaction struct {
	session mongo.Session
}

// Commit finalizes the transaction.
func (t *mongoTransaction) Commit(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.CommitTransaction(ctx)
}

// Rollback aborts the transaction.
func (t *mongoTransaction) Rollback(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.AbortTransaction(ctx)
}
