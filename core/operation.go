// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the Operation descriptor, the per-call bag of parsed
// parameters threaded through the dispatch pipeline, and the Result shape
// behaviors produce.
package core

import "github.com/google/uuid"

// Verb identifies which logical database operation an Operation performs.
type Verb string

const (
	// VerbSelect queries existing rows.
	VerbSelect Verb = "select"
	// VerbInsert creates new rows.
	VerbInsert Verb = "insert"
	// VerbUpdate modifies existing rows.
	VerbUpdate Verb = "update"
	// VerbDelete removes existing rows.
	VerbDelete Verb = "delete"
)

// Operation is the structured description of one logical mapper call.
//
// It is scoped to a single top-level invocation and every internal
// re-entrant sub-call that invocation makes: sub-calls are derived with
// fork, which carries the hook re-entrancy guard along. Each concurrent
// caller constructs its own Operation, so no locking is needed here.
type Operation struct {
	ID      uuid.UUID  // correlates trace events of one logical call
	Verb    Verb       // select, insert, update, delete
	Kind    Kind       // result shape this invocation must produce
	Model   Tag        // dispatch model tag
	Columns []string   // requested columns, empty means all
	Where   *Where     // filter/sort/pagination description
	Changes Changes    // field updates for VerbUpdate
	Rows    []FieldSet // rows to insert for VerbInsert

	// hooked marks that the after-hook layer already wrapped this logical
	// call. Sub-operations forked from a hooked operation inherit the
	// mark, so nested dispatches never re-trigger the hook.
	hooked bool
}

// Changes represents a set of field updates, mapping column names to new
// values. It is used by update operations.
type Changes map[string]any

// newOperation creates a descriptor for a fresh top-level call.
func newOperation(verb Verb, kind Kind, model Tag) *Operation {
	return &Operation{
		ID:    uuid.New(),
		Verb:  verb,
		Kind:  kind,
		Model: model,
		Where: &Where{},
	}
}

// fork derives the descriptor for an internal sub-call producing a
// different result shape. The fork shares the parent's identity and
// re-entrancy guard but carries its own shape fields.
func (op *Operation) fork(kind Kind) *Operation {
	forked := *op
	forked.Kind = kind
	return &forked
}

// Result is the outcome of a dispatched operation: exactly one of the
// three lazy sequences is populated, matching the operation kind.
//
// Counts is a sequence for compositional uniformity with the other two
// shapes: the primary count stage yields a single element holding the
// affected-row count, while the hook composition layer yields one
// constant 1 per affected row. Summing the elements gives the count in
// both encodings.
type Result struct {
	Kind    Kind
	Records *Seq[Record]
	Keys    *Seq[FieldSet]
	Counts  *Seq[int64]
}
