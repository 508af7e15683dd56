// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the Mapper, the entry point callers use. A Mapper owns a
// dispatch Registry, an Executor, and a MetadataProvider, and exposes the
// three operation shapes both lazily (…Seq, pull-based single-pass) and
// eagerly (drained to a concrete value).
package core

import "context"

// Mapper turns model-centric operations into database statements and
// marshals the results into change-tracking Records.
//
// A Mapper is configured once and then safe for concurrent use: every
// call constructs its own Operation descriptor, and the registry is
// read-mostly configuration.
type Mapper struct {
	registry *Registry
	exec     Executor
	meta     MetadataProvider
	trace    TraceFunc
}

// Option customizes a Mapper during construction.
type Option func(*Mapper)

// WithRegistry supplies a pre-populated Registry instead of a fresh one.
// The default stage primaries and the hook composition layer are still
// installed on it, without disturbing existing registrations.
func WithRegistry(registry *Registry) Option {
	return func(m *Mapper) { m.registry = registry }
}

// WithMetadata supplies a MetadataProvider. Defaults to NewMetadata().
func WithMetadata(meta MetadataProvider) Option {
	return func(m *Mapper) { m.meta = meta }
}

// WithTrace installs a trace callback observing stage entries.
func WithTrace(trace TraceFunc) Option {
	return func(m *Mapper) { m.trace = trace }
}

// New creates a Mapper bound to an Executor and installs the built-in
// pipeline: the three stage primaries registered under AnyModel, wrapped
// by the after-hook composition layer.
//
// Example:
//
//	exec, _ := postgres.NewExecutor(ctx, connString)
//	mapper := core.New(exec)
//	venues, err := mapper.Select(ctx, "venue", core.Field("category").Eq("bar"))
func New(exec Executor, options ...Option) *Mapper {
	m := &Mapper{exec: exec}
	for _, option := range options {
		option(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	if m.meta == nil {
		m.meta = NewMetadata()
	}
	m.installStages()
	m.installAfterLayer()
	return m
}

// Registry exposes the mapper's dispatch registry for extension code.
func (m *Mapper) Registry() *Registry {
	return m.registry
}

// Metadata exposes the mapper's metadata provider.
func (m *Mapper) Metadata() MetadataProvider {
	return m.meta
}

// traceEvent invokes the trace callback, if any.
func (m *Mapper) traceEvent(op *Operation, stage string) {
	if m.trace != nil {
		m.trace(TraceEvent{OpID: op.ID.String(), Kind: op.Kind, Model: op.Model, Stage: stage})
	}
}

// dispatch resolves and invokes the behavior chain for the operation.
func (m *Mapper) dispatch(ctx context.Context, op *Operation) (*Result, error) {
	m.traceEvent(op, "dispatch")
	chain, err := m.registry.Resolve(op.Kind, op.Model)
	if err != nil {
		return nil, err
	}
	return chain(ctx, op)
}

// seqResult dispatches and extracts the sequence matching the kind.
func (m *Mapper) recordsResult(ctx context.Context, op *Operation) (*Seq[Record], error) {
	result, err := m.dispatch(ctx, op)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

func (m *Mapper) keysResult(ctx context.Context, op *Operation) (*Seq[FieldSet], error) {
	result, err := m.dispatch(ctx, op)
	if err != nil {
		return nil, err
	}
	return result.Keys, nil
}

func (m *Mapper) countsResult(ctx context.Context, op *Operation) (*Seq[int64], error) {
	result, err := m.dispatch(ctx, op)
	if err != nil {
		return nil, err
	}
	return result.Counts, nil
}

//
// Select
//

// SelectSeq lazily queries full records. Nothing executes before the
// first pull, and the sequence is single-pass.
func (m *Mapper) SelectSeq(ctx context.Context, model Tag, args ...any) (*Seq[Record], error) {
	op := newOperation(VerbSelect, KindRecords, model)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.recordsResult(ctx, op)
}

// Select eagerly queries full records, draining the lazy sequence.
func (m *Mapper) Select(ctx context.Context, model Tag, args ...any) ([]Record, error) {
	seq, err := m.SelectSeq(ctx, model, args...)
	if err != nil {
		return nil, err
	}
	records, err := CollectSeq(seq)
	if err != nil {
		return nil, err
	}
	Emit(EventSelect, SelectPayload{Model: model, Records: records})
	return records, nil
}

// SelectOne queries full records and returns the first, or ok=false when
// nothing matched. Iteration stops after one element.
func (m *Mapper) SelectOne(ctx context.Context, model Tag, args ...any) (Record, bool, error) {
	seq, err := m.SelectSeq(ctx, model, args...)
	if err != nil {
		return Record{}, false, err
	}
	defer seq.Close()
	record, ok, err := seq.Next()
	if err != nil || !ok {
		return Record{}, false, err
	}
	return record, true, nil
}

// SelectKeysSeq lazily queries only the primary-key field sets of the
// matching rows.
func (m *Mapper) SelectKeysSeq(ctx context.Context, model Tag, args ...any) (*Seq[FieldSet], error) {
	op := newOperation(VerbSelect, KindKeys, model)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.keysResult(ctx, op)
}

// SelectKeys eagerly queries the primary-key field sets of the matching rows.
func (m *Mapper) SelectKeys(ctx context.Context, model Tag, args ...any) ([]FieldSet, error) {
	seq, err := m.SelectKeysSeq(ctx, model, args...)
	if err != nil {
		return nil, err
	}
	return CollectSeq(seq)
}

// CountSeq lazily counts the matching rows, exposed as a one-element
// sequence for uniformity with the other shapes.
func (m *Mapper) CountSeq(ctx context.Context, model Tag, args ...any) (*Seq[int64], error) {
	op := newOperation(VerbSelect, KindCount, model)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.countsResult(ctx, op)
}

// Count eagerly counts the matching rows.
func (m *Mapper) Count(ctx context.Context, model Tag, args ...any) (int64, error) {
	seq, err := m.CountSeq(ctx, model, args...)
	if err != nil {
		return 0, err
	}
	return sumCounts(seq)
}

//
// Insert
//

// InsertSeq lazily inserts rows and yields the newly inserted rows as
// full Records (re-fetched, so original == current).
func (m *Mapper) InsertSeq(ctx context.Context, model Tag, rows []map[string]any) (*Seq[Record], error) {
	op := newOperation(VerbInsert, KindRecords, model)
	op.Rows = normalizeRows(model, m.meta, rows)
	return m.recordsResult(ctx, op)
}

// Insert eagerly inserts rows and returns the inserted Records.
func (m *Mapper) Insert(ctx context.Context, model Tag, rows []map[string]any) ([]Record, error) {
	seq, err := m.InsertSeq(ctx, model, rows)
	if err != nil {
		return nil, err
	}
	records, err := CollectSeq(seq)
	if err != nil {
		return nil, err
	}
	Emit(EventInsert, InsertPayload{Model: model, Count: int64(len(records))})
	return records, nil
}

// InsertKeysSeq lazily inserts rows and yields the newly assigned
// primary-key field sets in insertion order.
func (m *Mapper) InsertKeysSeq(ctx context.Context, model Tag, rows []map[string]any) (*Seq[FieldSet], error) {
	op := newOperation(VerbInsert, KindKeys, model)
	op.Rows = normalizeRows(model, m.meta, rows)
	return m.keysResult(ctx, op)
}

// InsertKeys eagerly inserts rows and returns the newly assigned keys.
func (m *Mapper) InsertKeys(ctx context.Context, model Tag, rows []map[string]any) ([]FieldSet, error) {
	seq, err := m.InsertKeysSeq(ctx, model, rows)
	if err != nil {
		return nil, err
	}
	keys, err := CollectSeq(seq)
	if err != nil {
		return nil, err
	}
	Emit(EventInsert, InsertPayload{Model: model, Count: int64(len(keys))})
	return keys, nil
}

// InsertCountSeq lazily inserts rows, yielding the affected-row count
// shape. Inserting no rows short-circuits to 0 without touching the store.
func (m *Mapper) InsertCountSeq(ctx context.Context, model Tag, rows []map[string]any) (*Seq[int64], error) {
	op := newOperation(VerbInsert, KindCount, model)
	op.Rows = normalizeRows(model, m.meta, rows)
	return m.countsResult(ctx, op)
}

// InsertCount eagerly inserts rows and returns how many were inserted.
func (m *Mapper) InsertCount(ctx context.Context, model Tag, rows []map[string]any) (int64, error) {
	seq, err := m.InsertCountSeq(ctx, model, rows)
	if err != nil {
		return 0, err
	}
	count, err := sumCounts(seq)
	if err != nil {
		return 0, err
	}
	Emit(EventInsert, InsertPayload{Model: model, Count: count})
	return count, nil
}

//
// Update
//

// UpdateSeq lazily updates the matching rows and yields them as full
// Records (re-fetched after the update).
func (m *Mapper) UpdateSeq(ctx context.Context, model Tag, changes Changes, args ...any) (*Seq[Record], error) {
	op := newOperation(VerbUpdate, KindRecords, model)
	op.Changes = translateChanges(model, m.meta, changes)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.recordsResult(ctx, op)
}

// UpdateKeysSeq lazily updates the matching rows and yields their
// primary-key field sets.
func (m *Mapper) UpdateKeysSeq(ctx context.Context, model Tag, changes Changes, args ...any) (*Seq[FieldSet], error) {
	op := newOperation(VerbUpdate, KindKeys, model)
	op.Changes = translateChanges(model, m.meta, changes)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.keysResult(ctx, op)
}

// UpdateCountSeq lazily updates the matching rows, yielding the
// affected-row count shape.
func (m *Mapper) UpdateCountSeq(ctx context.Context, model Tag, changes Changes, args ...any) (*Seq[int64], error) {
	op := newOperation(VerbUpdate, KindCount, model)
	op.Changes = translateChanges(model, m.meta, changes)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.countsResult(ctx, op)
}

// Update eagerly updates the matching rows and returns the affected count.
func (m *Mapper) Update(ctx context.Context, model Tag, changes Changes, args ...any) (int64, error) {
	seq, err := m.UpdateCountSeq(ctx, model, changes, args...)
	if err != nil {
		return 0, err
	}
	count, err := sumCounts(seq)
	if err != nil {
		return 0, err
	}
	Emit(EventUpdate, UpdatePayload{Model: model, Changes: changes, Count: count})
	return count, nil
}

// Save persists a record's pending changes, keyed by its primary key.
// A pristine record is a no-op returning the record unchanged.
func (m *Mapper) Save(ctx context.Context, record Record) (Record, error) {
	changes, dirty := record.Changes()
	if !dirty {
		return record, nil
	}
	model := record.Model()
	conditions := make([]*Condition, 0, 2)
	for _, column := range m.meta.PrimaryKey(model) {
		value, ok := record.Original().Get(column)
		if !ok {
			return Record{}, opError(KindCount, model, "save", errMissingKey(column))
		}
		conditions = append(conditions, Field(column).Eq(value))
	}
	if _, err := m.Update(ctx, model, Changes(changes.Map()), foldConditionsAnd(conditions...)); err != nil {
		return Record{}, err
	}
	return record.Reset(), nil
}

//
// Delete
//

// DeleteKeysSeq lazily deletes the matching rows and yields the
// primary-key field sets of the rows that were removed.
func (m *Mapper) DeleteKeysSeq(ctx context.Context, model Tag, args ...any) (*Seq[FieldSet], error) {
	op := newOperation(VerbDelete, KindKeys, model)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.keysResult(ctx, op)
}

// DeleteCountSeq lazily deletes the matching rows, yielding the
// affected-row count shape.
func (m *Mapper) DeleteCountSeq(ctx context.Context, model Tag, args ...any) (*Seq[int64], error) {
	op := newOperation(VerbDelete, KindCount, model)
	if err := ParseArgs(op, m.meta, args...); err != nil {
		return nil, err
	}
	return m.countsResult(ctx, op)
}

// Delete eagerly deletes the matching rows and returns the affected count.
func (m *Mapper) Delete(ctx context.Context, model Tag, args ...any) (int64, error) {
	seq, err := m.DeleteCountSeq(ctx, model, args...)
	if err != nil {
		return 0, err
	}
	count, err := sumCounts(seq)
	if err != nil {
		return 0, err
	}
	Emit(EventDelete, DeletePayload{Model: model, Count: count})
	return count, nil
}

// sumCounts reduces a count-shaped sequence to the affected-row count.
// Both the primary encoding [N] and the hooked encoding [1, 1, ...] sum
// to the same value, and an empty sequence sums to zero.
func sumCounts(seq *Seq[int64]) (int64, error) {
	return FoldSeq(seq, int64(0), func(total int64, element int64) int64 {
		return total + element
	})
}

// translateChanges maps caller-supplied change names to store column names.
func translateChanges(model Tag, meta MetadataProvider, changes Changes) Changes {
	if changes == nil {
		return nil
	}
	translated := make(Changes, len(changes))
	for name, value := range changes {
		translated[meta.KeyName(model, name)] = value
	}
	return translated
}
