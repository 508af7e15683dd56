// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the after-hook composition layer: a cross-cutting
// extension that wraps all three pipeline stages so a per-model hook runs
// on every record an operation produces, exactly once per logical call.
package core

import "context"

// aroundAfterName identifies the composition layer's around behaviors in
// the registry, so re-installation replaces instead of stacking.
const aroundAfterName = "after"

// RegisterAfterHook registers fn as the after hook for the model under
// the given kinds. A nil or empty kind list registers it for all three
// kinds. Re-registering for the same (kind, model) replaces the previous
// hook.
//
// The hook receives every record the operation produces and its return
// value replaces the record in the result sequence. For keys- and
// count-shaped operations the layer re-fetches full records first, so
// the hook always sees complete rows.
//
// Example:
//
//	mapper.RegisterAfterHook(nil, "venue", func(kind core.Kind, model core.Tag, rec core.Record) (core.Record, error) {
//	    return rec.Set("audited", true), nil
//	})
func (m *Mapper) RegisterAfterHook(kinds []Kind, model Tag, fn Hook) {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	for _, kind := range kinds {
		m.registry.SetHook(kind, model, fn)
	}
}

// installAfterLayer registers the composition layer as an around behavior
// on all three operation kinds under AnyModel.
func (m *Mapper) installAfterLayer() {
	for _, kind := range Kinds {
		m.registry.RegisterAround(kind, AnyModel, aroundAfterName, m.afterAround)
	}
}

// afterAround is the around behavior implementing the hook composition.
//
// It delegates untouched when the operation's re-entrancy guard is
// already set (a wrapped operation internally invoking another) or when
// no hook resolves for the model; in the latter case no extra query is
// ever constructed. Otherwise it sets the guard, obtains the stage's raw
// lazy result, and composes a new lazy sequence applying the hook per
// element. Nothing runs before the first pull.
func (m *Mapper) afterAround(ctx context.Context, op *Operation, next PrimaryFunc) (*Result, error) {
	if op.hooked {
		return next(ctx, op)
	}
	hook, ok := m.registry.HookFor(op.Kind, op.Model)
	if !ok {
		return next(ctx, op)
	}
	op.hooked = true

	applyHook := func(record Record) (Record, error) {
		transformed, err := hook(op.Kind, op.Model, record)
		if err != nil {
			return Record{}, &HookError{Kind: op.Kind, Model: op.Model, Record: record, Err: err}
		}
		return transformed, nil
	}

	switch op.Kind {
	case KindRecords:
		result, err := next(ctx, op)
		if err != nil {
			return nil, err
		}
		result.Records = MapSeq(result.Records, applyHook)
		return result, nil

	case KindKeys:
		// Primary keys alone are insufficient context for the hook:
		// re-fetch full records in input key order, hook each, then
		// re-derive the key fields from the hook's return value.
		result, err := next(ctx, op)
		if err != nil {
			return nil, err
		}
		keyColumns := m.meta.PrimaryKey(op.Model)
		hooked := MapSeq(m.rehydrate(ctx, op, result.Keys), applyHook)
		result.Keys = MapSeq(hooked, func(record Record) (FieldSet, error) {
			return keyFields(record.Fields(), keyColumns)
		})
		return result, nil

	case KindCount:
		// The count stage has no row identities to hook, so delegate to
		// the keys shape instead, hook each rehydrated record, and let
		// the sequence's cardinality carry the count (a constant 1 per
		// element).
		keysResult, err := m.dispatch(ctx, op.fork(KindKeys))
		if err != nil {
			return nil, err
		}
		hooked := MapSeq(m.rehydrate(ctx, op, keysResult.Keys), applyHook)
		counts := MapSeq(hooked, func(Record) (int64, error) {
			return 1, nil
		})
		return &Result{Kind: KindCount, Counts: counts}, nil

	default:
		return next(ctx, op)
	}
}

// rehydrate lazily turns a sequence of primary keys into a sequence of
// full Records in the same key order. The keys are not consumed and no
// re-fetch query runs until the composed sequence is pulled.
func (m *Mapper) rehydrate(ctx context.Context, op *Operation, keys *Seq[FieldSet]) *Seq[Record] {
	return DeferSeq(func() (*Seq[Record], error) {
		collected, err := CollectSeq(keys)
		if err != nil {
			return nil, err
		}
		return m.fetchByKeys(ctx, op, collected), nil
	})
}

// keyFields projects the key columns out of a full field set.
func keyFields(fields FieldSet, keyColumns []string) (FieldSet, error) {
	projected := make(map[string]any, len(keyColumns))
	for _, column := range keyColumns {
		value, ok := fields.Get(column)
		if !ok {
			return FieldSet{}, errMissingKey(column)
		}
		projected[column] = value
	}
	return NewFieldSet(projected), nil
}
