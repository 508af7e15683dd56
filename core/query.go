// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the Query builder, the fluent way to produce the query
// description a mapper call consumes. The builder is sugar over Where and
// Condition; ParseArgs accepts a *Query anywhere it accepts raw arguments.
package core

// Query accumulates filtering, projection, and pagination options for a
// mapper call.
//
// Example:
//
//	q := core.NewQuery().
//		Filter(core.Field("category").Eq("bar"), core.Field("capacity").Gt(100)).
//		OrderBy("name", 1).
//		Limit(10)
//	venues, err := mapper.Select(ctx, "venue", q)
type Query struct {
	conditions []*Condition
	columns    []string
	sort       []Sort
	limit      int
	offset     int
}

// NewQuery creates an empty Query matching every row.
func NewQuery() *Query {
	return &Query{}
}

// Filter appends conditions, combined with AND.
func (q *Query) Filter(conditions ...*Condition) *Query {
	q.conditions = append(q.conditions, conditions...)
	return q
}

// Columns restricts the selected columns. Empty means all columns.
func (q *Query) Columns(names ...string) *Query {
	q.columns = append(q.columns, names...)
	return q
}

// OrderBy appends an ordering rule: 1 for ascending, -1 for descending.
func (q *Query) OrderBy(field string, order int) *Query {
	q.sort = append(q.sort, Sort{FieldName: field, Order: order})
	return q
}

// Limit caps the number of returned rows. Zero means no limit.
func (q *Query) Limit(limit int) *Query {
	q.limit = limit
	return q
}

// Offset skips the given number of rows.
func (q *Query) Offset(offset int) *Query {
	q.offset = offset
	return q
}

// where materializes the accumulated options into a Where description.
func (q *Query) where() *Where {
	return &Where{
		Condition: foldConditionsAnd(q.conditions...),
		Sort:      append([]Sort(nil), q.sort...),
		Limit:     q.limit,
		Offset:    q.offset,
	}
}
