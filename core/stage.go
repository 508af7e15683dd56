// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the three built-in pipeline stages (returning full
// records, returning primary keys, returning an affected-row count), each
// registered as the default primary behavior for its operation kind. Stages
// delegate statement execution to the Executor and are responsible only for
// shaping the driver result into a lazy, single-pass sequence.
package core

import (
	"context"
	"fmt"
)

// installStages registers the default stage primaries under AnyModel.
func (m *Mapper) installStages() {
	m.registry.RegisterPrimary(KindRecords, AnyModel, m.recordsPrimary)
	m.registry.RegisterPrimary(KindKeys, AnyModel, m.keysPrimary)
	m.registry.RegisterPrimary(KindCount, AnyModel, m.countPrimary)
}

// statement resolves the operation's model metadata into the physical
// Statement handed to the driver.
func (m *Mapper) statement(op *Operation, columns []string) *Statement {
	return &Statement{
		Verb:    op.Verb,
		Table:   m.meta.Table(op.Model),
		Columns: columns,
		Where:   op.Where,
		Rows:    op.Rows,
		Changes: op.Changes,
	}
}

// recordsPrimary produces full Records.
//
// Select streams rows straight from the store. Insert and update first
// run the keys-shaped operation internally, then re-fetch the affected
// rows as full records preserving the key order, so callers observe the
// rows as they now exist (original == current).
func (m *Mapper) recordsPrimary(ctx context.Context, op *Operation) (*Result, error) {
	switch op.Verb {
	case VerbSelect:
		records := DeferSeq(func() (*Seq[Record], error) {
			m.traceEvent(op, "query")
			rows, err := m.exec.Query(ctx, m.statement(op, op.Columns))
			if err != nil {
				return nil, err
			}
			return MapSeq(rows, func(row FieldSet) (Record, error) {
				return NewRecord(op.Model, row), nil
			}), nil
		})
		return &Result{Kind: KindRecords, Records: records}, nil

	case VerbInsert, VerbUpdate:
		records := DeferSeq(func() (*Seq[Record], error) {
			keysResult, err := m.dispatch(ctx, op.fork(KindKeys))
			if err != nil {
				return nil, err
			}
			keys, err := CollectSeq(keysResult.Keys)
			if err != nil {
				return nil, err
			}
			return m.fetchByKeys(ctx, op, keys), nil
		})
		return &Result{Kind: KindRecords, Records: records}, nil

	default:
		return nil, fmt.Errorf("records shape does not support verb %q", op.Verb)
	}
}

// keysPrimary produces primary-key field sets shaped by the model's
// declared primary-key columns.
func (m *Mapper) keysPrimary(ctx context.Context, op *Operation) (*Result, error) {
	keyColumns := m.meta.PrimaryKey(op.Model)

	switch op.Verb {
	case VerbSelect:
		keys := DeferSeq(func() (*Seq[FieldSet], error) {
			m.traceEvent(op, "query")
			return m.exec.Query(ctx, m.statement(op, keyColumns))
		})
		return &Result{Kind: KindKeys, Keys: keys}, nil

	case VerbInsert, VerbUpdate, VerbDelete:
		if op.Verb == VerbInsert && len(op.Rows) == 0 {
			return &Result{Kind: KindKeys, Keys: EmptySeq[FieldSet]()}, nil
		}
		keys := DeferSeq(func() (*Seq[FieldSet], error) {
			m.traceEvent(op, "mutate")
			return m.exec.MutateKeys(ctx, m.statement(op, keyColumns))
		})
		return &Result{Kind: KindKeys, Keys: keys}, nil

	default:
		return nil, fmt.Errorf("keys shape does not support verb %q", op.Verb)
	}
}

// countPrimary produces the affected-row count as a one-element sequence.
// Inserting an empty set of rows short-circuits to a count of zero
// without issuing any statement.
func (m *Mapper) countPrimary(ctx context.Context, op *Operation) (*Result, error) {
	if op.Verb == VerbInsert && len(op.Rows) == 0 {
		return &Result{Kind: KindCount, Counts: SeqOf[int64](0)}, nil
	}
	counts := DeferSeq(func() (*Seq[int64], error) {
		m.traceEvent(op, "mutate")
		count, err := m.exec.Mutate(ctx, m.statement(op, nil))
		if err != nil {
			return nil, err
		}
		return SeqOf(count), nil
	})
	return &Result{Kind: KindCount, Counts: counts}, nil
}
