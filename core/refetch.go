// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the select re-fetch adapter: given an ordered list of
// primary keys, it produces the matching full records in the caller's key
// order, not the store's natural order. Inserts and the hook composition
// layer both rely on this positional correspondence.
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// fetchByKeys produces a lazy sequence of full Records matching the given
// primary-key field sets, ordered positionally like the input list.
//
// The store is over-fetched once by key-set membership; the fetched rows
// are then re-ordered and duplicated to mirror the input, so a key that
// appears twice yields two records carrying the same data without a
// second query. A key with no matching row fails the iteration.
//
// Nothing executes until the first element is pulled; the "refetch"
// trace event marks the query actually firing.
func (m *Mapper) fetchByKeys(ctx context.Context, parent *Operation, keys []FieldSet) *Seq[Record] {
	if len(keys) == 0 {
		return EmptySeq[Record]()
	}
	return DeferSeq(func() (*Seq[Record], error) {
		m.traceEvent(parent, "refetch")

		keyColumns := m.meta.PrimaryKey(parent.Model)
		op := parent.fork(KindRecords)
		op.Verb = VerbSelect
		op.Rows = nil
		op.Changes = nil
		op.Columns = nil
		op.Where = &Where{Condition: keyMembership(keys, keyColumns)}

		result, err := m.dispatch(ctx, op)
		if err != nil {
			return nil, err
		}
		fetched, err := CollectSeq(result.Records)
		if err != nil {
			return nil, err
		}

		byKey := make(map[string]Record, len(fetched))
		for _, record := range fetched {
			byKey[canonicalKey(record.Fields(), keyColumns)] = record
		}

		index := 0
		return NewSeq(func() (Record, bool, error) {
			if index >= len(keys) {
				return Record{}, false, nil
			}
			key := keys[index]
			index++
			record, ok := byKey[canonicalKey(key, keyColumns)]
			if !ok {
				return Record{}, false, fmt.Errorf("refetch: no row for key %v", key.Map())
			}
			return record, true, nil
		}), nil
	})
}

// keyMembership builds the filter matching any of the given keys: a
// single IN for a one-column key, an OR of per-key AND-equalities for
// composite keys. Duplicate keys collapse into one membership test.
func keyMembership(keys []FieldSet, keyColumns []string) *Condition {
	if len(keyColumns) == 1 {
		column := keyColumns[0]
		seen := make(map[string]bool, len(keys))
		values := make([]any, 0, len(keys))
		for _, key := range keys {
			canonical := canonicalKey(key, keyColumns)
			if seen[canonical] {
				continue
			}
			seen[canonical] = true
			value, _ := key.Get(column)
			values = append(values, value)
		}
		return Field(column).In(values...)
	}

	seen := make(map[string]bool, len(keys))
	var alternatives []*Condition
	for _, key := range keys {
		canonical := canonicalKey(key, keyColumns)
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		equalities := make([]*Condition, 0, len(keyColumns))
		for _, column := range keyColumns {
			value, _ := key.Get(column)
			equalities = append(equalities, Field(column).Eq(value))
		}
		alternatives = append(alternatives, foldConditionsAnd(equalities...))
	}
	if len(alternatives) == 1 {
		return alternatives[0]
	}
	return alternatives[0].Or(alternatives[1:]...)
}

// canonicalKey renders a key's values into a comparable string so rows
// fetched by membership can be matched back to input positions. Values
// are formatted, not type-compared, so an int64 key matches an int input.
func canonicalKey(fields FieldSet, keyColumns []string) string {
	parts := make([]string, 0, len(keyColumns))
	columns := append([]string(nil), keyColumns...)
	sort.Strings(columns)
	for _, column := range columns {
		value, _ := fields.Get(column)
		parts = append(parts, fmt.Sprintf("%s=%v", column, value))
	}
	return strings.Join(parts, "|")
}
