// Package memory provides an in-memory executor for the wisp data mapper.
// It keeps tables as ordered slices of rows under a mutex and evaluates
// condition trees directly against the row maps. It exists for tests and
// prototyping: the statement counters make query amplification
// observable, which the pipeline's laziness guarantees depend on.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wispdb/wisp/core"
)

// Executor implements core.Executor against process-local state.
type Executor struct {
	mutex     sync.Mutex
	tableMap  map[string][]map[string]any
	sequence  map[string]int64
	queries   atomic.Int64
	mutations atomic.Int64
}

var _ core.Executor = (*Executor)(nil)

// NewExecutor creates an empty store.
func NewExecutor() *Executor {
	return &Executor{
		tableMap: map[string][]map[string]any{},
		sequence: map[string]int64{},
	}
}

// Seed appends rows to a table verbatim, bypassing statement execution
// and the counters. Rows keep their given order.
func (e *Executor) Seed(table string, rows ...map[string]any) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for _, row := range rows {
		e.tableMap[table] = append(e.tableMap[table], copyRow(row))
	}
}

// QueryCount reports how many Query calls have executed.
func (e *Executor) QueryCount() int64 {
	return e.queries.Load()
}

// MutationCount reports how many MutateKeys and Mutate calls have
// executed.
func (e *Executor) MutationCount() int64 {
	return e.mutations.Load()
}

// ResetCounters zeroes the statement counters.
func (e *Executor) ResetCounters() {
	e.queries.Store(0)
	e.mutations.Store(0)
}

// Connect always succeeds.
func (e *Executor) Connect(ctx context.Context) error { return nil }

// Ping always succeeds.
func (e *Executor) Ping(ctx context.Context) error { return nil }

// Close always succeeds.
func (e *Executor) Close(ctx context.Context) error { return nil }

// Begin returns a no-op transaction. The store is not isolated: the
// transaction exists so code exercising core.RunTransaction works
// unchanged against this executor.
func (e *Executor) Begin(ctx context.Context) (core.Transaction, error) {
	return noopTransaction{}, nil
}

type noopTransaction struct{}

func (noopTransaction) Commit(ctx context.Context) error   { return nil }
func (noopTransaction) Rollback(ctx context.Context) error { return nil }

// Query executes a select and streams the matching rows. The match set
// is snapshotted under the lock at call time; the returned sequence
// yields from the snapshot.
func (e *Executor) Query(ctx context.Context, stmt *core.Statement) (*core.Seq[core.FieldSet], error) {
	e.queries.Add(1)
	e.mutex.Lock()
	defer e.mutex.Unlock()

	matched := e.match(stmt)
	fieldSetList := make([]core.FieldSet, 0, len(matched))
	for _, row := range matched {
		fieldSetList = append(fieldSetList, core.NewFieldSet(project(row, stmt.Columns)))
	}
	return core.SeqOf(fieldSetList...), nil
}

// MutateKeys executes an insert, update, or delete and returns the
// requested columns of every affected row. Inserted rows missing a
// requested column receive an auto-incremented int64 for it.
func (e *Executor) MutateKeys(ctx context.Context, stmt *core.Statement) (*core.Seq[core.FieldSet], error) {
	e.mutations.Add(1)
	e.mutex.Lock()
	defer e.mutex.Unlock()

	switch stmt.Verb {
	case core.VerbInsert:
		keyList := make([]core.FieldSet, 0, len(stmt.Rows))
		for _, fieldSet := range stmt.Rows {
			row := copyRow(fieldSet.Map())
			for _, column := range stmt.Columns {
				if _, ok := row[column]; !ok {
					e.sequence[stmt.Table]++
					row[column] = e.sequence[stmt.Table]
				}
			}
			e.tableMap[stmt.Table] = append(e.tableMap[stmt.Table], row)
			keyList = append(keyList, core.NewFieldSet(project(row, stmt.Columns)))
		}
		return core.SeqOf(keyList...), nil

	case core.VerbUpdate:
		keyList := []core.FieldSet{}
		for _, row := range e.match(stmt) {
			for column, value := range stmt.Changes {
				row[column] = value
			}
			keyList = append(keyList, core.NewFieldSet(project(row, stmt.Columns)))
		}
		return core.SeqOf(keyList...), nil

	case core.VerbDelete:
		keyList := []core.FieldSet{}
		kept := e.tableMap[stmt.Table][:0]
		for _, row := range e.tableMap[stmt.Table] {
			if matches(stmt, row) {
				keyList = append(keyList, core.NewFieldSet(project(row, stmt.Columns)))
				continue
			}
			kept = append(kept, row)
		}
		e.tableMap[stmt.Table] = kept
		return core.SeqOf(keyList...), nil

	default:
		return nil, fmt.Errorf("memory: MutateKeys does not support verb %q", stmt.Verb)
	}
}

// Mutate executes a mutation and returns the affected-row count. A
// select statement counts the matching rows instead.
func (e *Executor) Mutate(ctx context.Context, stmt *core.Statement) (int64, error) {
	e.mutations.Add(1)
	e.mutex.Lock()
	defer e.mutex.Unlock()

	switch stmt.Verb {
	case core.VerbSelect:
		return int64(len(e.match(stmt))), nil

	case core.VerbInsert:
		for _, fieldSet := range stmt.Rows {
			e.tableMap[stmt.Table] = append(e.tableMap[stmt.Table], copyRow(fieldSet.Map()))
		}
		return int64(len(stmt.Rows)), nil

	case core.VerbUpdate:
		var count int64
		for _, row := range e.match(stmt) {
			for column, value := range stmt.Changes {
				row[column] = value
			}
			count++
		}
		return count, nil

	case core.VerbDelete:
		var count int64
		kept := e.tableMap[stmt.Table][:0]
		for _, row := range e.tableMap[stmt.Table] {
			if matches(stmt, row) {
				count++
				continue
			}
			kept = append(kept, row)
		}
		e.tableMap[stmt.Table] = kept
		return count, nil

	default:
		return 0, fmt.Errorf("memory: Mutate does not support verb %q", stmt.Verb)
	}
}

// match returns the rows satisfying the statement's filter, sorted and
// paged per its Where clause. Rows are the stored maps, not copies, so
// mutating callers edit in place.
func (e *Executor) match(stmt *core.Statement) []map[string]any {
	matched := []map[string]any{}
	for _, row := range e.tableMap[stmt.Table] {
		if matches(stmt, row) {
			matched = append(matched, row)
		}
	}
	if stmt.Where == nil {
		return matched
	}

	if len(stmt.Where.Sort) > 0 {
		sortItems := stmt.Where.Sort
		sort.SliceStable(matched, func(i, j int) bool {
			for _, sortItem := range sortItems {
				comparison := compare(matched[i][sortItem.FieldName], matched[j][sortItem.FieldName])
				if comparison == 0 {
					continue
				}
				if sortItem.Order < 0 {
					return comparison > 0
				}
				return comparison < 0
			}
			return false
		})
	}
	if stmt.Where.Offset > 0 {
		if stmt.Where.Offset >= len(matched) {
			return nil
		}
		matched = matched[stmt.Where.Offset:]
	}
	if stmt.Where.Limit > 0 && stmt.Where.Limit < len(matched) {
		matched = matched[:stmt.Where.Limit]
	}
	return matched
}

// matches evaluates the statement's filter against a row.
func matches(stmt *core.Statement, row map[string]any) bool {
	if stmt.Where == nil {
		return true
	}
	return evaluate(stmt.Where.Condition, row)
}

// evaluate walks a condition tree against a row.
func evaluate(condition *core.Condition, row map[string]any) bool {
	if condition == nil || condition.Operator == nil {
		return true
	}
	if len(condition.Children) > 0 {
		switch *condition.Operator {
		case core.OpAnd:
			for _, child := range condition.Children {
				if !evaluate(child, row) {
					return false
				}
			}
			return true
		case core.OpOr:
			for _, child := range condition.Children {
				if evaluate(child, row) {
					return true
				}
			}
			return false
		case core.OpNot:
			for _, child := range condition.Children {
				if !evaluate(child, row) {
					return true
				}
			}
			return false
		}
	}

	value := row[condition.FieldName]
	switch *condition.Operator {
	case core.OpNil:
		return value == nil
	case core.OpEq:
		return equal(value, condition.Value)
	case core.OpGt:
		return compare(value, condition.Value) > 0
	case core.OpGte:
		return compare(value, condition.Value) >= 0
	case core.OpLt:
		return compare(value, condition.Value) < 0
	case core.OpLte:
		return compare(value, condition.Value) <= 0
	case core.OpLike:
		return like(fmt.Sprintf("%v", value), fmt.Sprintf("%v", condition.Value))
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		for _, candidate := range valueList {
			if equal(value, candidate) {
				return true
			}
		}
		return false
	}
	return false
}

// equal compares loosely across numeric widths, so an int64 stored value
// matches an int literal in a filter.
func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aFloat, aOk := toFloat(a)
	bFloat, bOk := toFloat(b)
	return aOk && bOk && aFloat == bFloat
}

// compare orders two values: numerically when both are numeric,
// lexically otherwise. Returns -1, 0, or 1.
func compare(a, b any) int {
	aFloat, aOk := toFloat(a)
	bFloat, bOk := toFloat(b)
	if aOk && bOk {
		switch {
		case aFloat < bFloat:
			return -1
		case aFloat > bFloat:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// toFloat widens any numeric value to float64.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// like evaluates a SQL-like pattern case-insensitively, with % and _ as
// wildcards.
func like(value, pattern string) bool {
	const percent = "__PERCENT__"
	const underscore = "__UNDERSCORE__"
	safe := strings.ReplaceAll(pattern, "%", percent)
	safe = strings.ReplaceAll(safe, "_", underscore)
	safe = regexp.QuoteMeta(safe)
	safe = strings.ReplaceAll(safe, percent, ".*")
	safe = strings.ReplaceAll(safe, underscore, ".")
	matched, err := regexp.MatchString("(?i)^"+safe+"$", value)
	return err == nil && matched
}

// project copies the requested columns out of a row, or the whole row
// when no projection was requested.
func project(row map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return copyRow(row)
	}
	projected := make(map[string]any, len(columns))
	for _, column := range columns {
		projected[column] = row[column]
	}
	return projected
}

// copyRow shallow-copies a row map.
func copyRow(row map[string]any) map[string]any {
	copied := make(map[string]any, len(row))
	for column, value := range row {
		copied[column] = value
	}
	return copied
}
