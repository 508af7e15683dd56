// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the argument normalizer: the convenience layer that turns
// loose varargs (column/value pairs, conditions, a prepared Query) into the
// normalized query description an Operation carries. Normalization is pure
// and deterministic; uninterpretable arguments fail immediately.
package core

import "fmt"

// ParseArgs folds raw call arguments into the operation's query
// description. Accepted argument forms, in any mix:
//
//   - *Query: a prepared builder, merged wholesale
//   - *Condition: appended to the filter (combined with AND)
//   - *Where: replaces the whole description
//   - string followed by any value: an equality pair, e.g. "name", "Tempest"
//
// A string with no following value, or an argument of any other type,
// is an argument-shape error. Custom primaries and arounds can reuse
// ParseArgs to accept the same loose argument forms the Mapper does.
func ParseArgs(op *Operation, meta MetadataProvider, args ...any) error {
	var conditions []*Condition
	for i := 0; i < len(args); i++ {
		switch arg := args[i].(type) {
		case *Query:
			op.Where = arg.where()
			op.Columns = append([]string(nil), arg.columns...)
			if op.Where.Condition != nil {
				conditions = append(conditions, op.Where.Condition)
				op.Where.Condition = nil
			}
		case *Where:
			// Copy before adopting: the caller's description is input,
			// never scratch space, so repeating the same call yields the
			// same operation.
			copied := *arg
			op.Where = &copied
			if copied.Condition != nil {
				conditions = append(conditions, copied.Condition)
				op.Where.Condition = nil
			}
		case *Condition:
			conditions = append(conditions, arg)
		case string:
			if i+1 >= len(args) {
				return fmt.Errorf("parse args: field %q has no value", arg)
			}
			column := meta.KeyName(op.Model, arg)
			conditions = append(conditions, Field(column).Eq(args[i+1]))
			i++
		default:
			return fmt.Errorf("parse args: cannot interpret argument %d (%T)", i, args[i])
		}
	}
	if op.Where == nil {
		op.Where = &Where{}
	}
	op.Where.Condition = foldConditionsAnd(conditions...)
	return nil
}

// normalizeRows translates caller-supplied insert rows into FieldSets
// with store column names. Rows may be plain maps or FieldSets.
func normalizeRows(model Tag, meta MetadataProvider, rows []map[string]any) []FieldSet {
	normalized := make([]FieldSet, 0, len(rows))
	for _, row := range rows {
		translated := make(map[string]any, len(row))
		for name, value := range row {
			translated[meta.KeyName(model, name)] = value
		}
		normalized = append(normalized, NewFieldSet(translated))
	}
	return normalized
}
