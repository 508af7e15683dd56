// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the executor boundary: the Statement handed to database
// drivers and the Executor interface drivers implement. The core resolves
// model metadata before building a Statement, so drivers deal only with
// physical tables, columns, and their own dialect.
package core

import "context"

// Statement is the physical request a pipeline stage hands to a driver.
//
// One Statement corresponds to one logical driver operation; drivers
// never retry internally.
type Statement struct {
	Verb    Verb       // select, insert, update, delete
	Table   string     // resolved physical table/collection name
	Columns []string   // columns to select, or to return from a mutation
	Where   *Where     // filter/sort/pagination, nil matches everything
	Rows    []FieldSet // rows to insert for VerbInsert
	Changes Changes    // field updates for VerbUpdate
}

// Executor is the contract between the mapper core and a database driver.
//
// Query, MutateKeys, and Mutate each execute one logical operation and
// never retry internally. SQL drivers satisfy every call with a single
// physical statement (RETURNING clauses cover MutateKeys); a store
// without an equivalent may need a companion read, as the mongo driver
// does when it pre-selects the matching keys before an update or
// delete. Row-producing methods return lazy sequences where the store
// supports streaming; the core defers even the method call itself until
// the first element of the composed result is pulled.
type Executor interface {
	// Connect establishes or verifies the underlying connection.
	Connect(ctx context.Context) error
	// Ping verifies the underlying connection is alive.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
	// Begin starts a transaction. Pass it through the context with
	// WithTransaction to route subsequent statements through it.
	Begin(ctx context.Context) (Transaction, error)

	// Query executes a select Statement and streams the matching rows.
	Query(ctx context.Context, stmt *Statement) (*Seq[FieldSet], error)
	// MutateKeys executes a mutating Statement and streams the key
	// columns (stmt.Columns) of every affected row, in the order the
	// store reports them. For inserts that order is the insertion order.
	MutateKeys(ctx context.Context, stmt *Statement) (*Seq[FieldSet], error)
	// Mutate executes a mutating Statement and returns the number of
	// affected rows. For VerbSelect it returns the matching-row count.
	Mutate(ctx context.Context, stmt *Statement) (int64, error)
}
