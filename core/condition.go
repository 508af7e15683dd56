// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the condition tree used to describe query filters in a
// driver-agnostic way. Drivers translate the tree into their own dialect.
package core

// Condition represents a single clause in a query filter.
//
// A condition targets a field (FieldName) with an operator (Eq, Gt, Like,
// In, etc.) and a comparison value. Conditions nest through Children,
// composing complex expressions with AND, OR, and NOT.
//
// Example:
//
//	cond := core.Field("capacity").Gt(100).
//		And(core.Field("category").Eq("bar"))
//
// The above is equivalent to:
//
//	(capacity > 100) AND (category = "bar")
type Condition struct {
	FieldName string       // The field/column name this condition applies to
	Operator  *Operator    // The comparison operator (Eq, Gt, Like, etc.)
	Value     any          // The comparison value
	Children  []*Condition // Nested conditions (for AND, OR, NOT expressions)
}

// Field starts a condition targeting the given field name.
//
// Example:
//
//	core.Field("name").Eq("Tempest")
func Field(name string) *Condition {
	return &Condition{FieldName: name}
}

// And combines this condition with additional conditions using the logical AND operator.
func (c *Condition) And(conditions ...*Condition) *Condition {
	return &Condition{
		Operator: &OpAnd,
		Children: append([]*Condition{c}, conditions...),
	}
}

// Or combines this condition with additional conditions using the logical OR operator.
func (c *Condition) Or(conditions ...*Condition) *Condition {
	return &Condition{
		Operator: &OpOr,
		Children: append([]*Condition{c}, conditions...),
	}
}

// Not negates this condition using the logical NOT operator.
func (c *Condition) Not() *Condition {
	return &Condition{
		Operator: &OpNot,
		Children: []*Condition{c},
	}
}

// Nil sets this condition to check for NULL values (IS NULL).
func (c *Condition) Nil() *Condition {
	c.Operator = &OpNil
	c.Value = nil
	return c
}

// Eq sets this condition to check for equality (=).
func (c *Condition) Eq(v any) *Condition {
	c.Operator = &OpEq
	c.Value = v
	return c
}

// Gt sets this condition to check for greater-than (>).
func (c *Condition) Gt(v any) *Condition {
	c.Operator = &OpGt
	c.Value = v
	return c
}

// Gte sets this condition to check for greater-than-or-equal (>=).
func (c *Condition) Gte(v any) *Condition {
	c.Operator = &OpGte
	c.Value = v
	return c
}

// Lt sets this condition to check for less-than (<).
func (c *Condition) Lt(v any) *Condition {
	c.Operator = &OpLt
	c.Value = v
	return c
}

// Lte sets this condition to check for less-than-or-equal (<=).
func (c *Condition) Lte(v any) *Condition {
	c.Operator = &OpLte
	c.Value = v
	return c
}

// Like sets this condition to match a pattern (SQL LIKE, regex on NoSQL stores).
func (c *Condition) Like(v any) *Condition {
	c.Operator = &OpLike
	c.Value = v
	return c
}

// In sets this condition to check membership in a list of values.
func (c *Condition) In(values ...any) *Condition {
	c.Operator = &OpIn
	c.Value = values
	return c
}

// Sort represents an ordering rule used in queries.
//
// FieldName specifies which column/field to sort by.
// Order determines the direction: 1 for ascending (ASC), -1 for descending (DESC).
type Sort struct {
	FieldName string
	Order     int // 1 = ASC, -1 = DESC
}

// Where encapsulates the filtering, projection, and pagination options of
// a query description.
type Where struct {
	Condition *Condition // root filter condition, nil matches everything
	Sort      []Sort     // ordering rules, applied in sequence
	Limit     int        // maximum number of rows, 0 means no limit
	Offset    int        // number of rows to skip
}

// foldConditionsAnd combines a list of conditions with AND, returning nil
// for an empty list and the sole condition unchanged for a single one.
func foldConditionsAnd(conditions ...*Condition) *Condition {
	switch len(conditions) {
	case 0:
		return nil
	case 1:
		return conditions[0]
	default:
		accumulated := conditions[0]
		for i := 1; i < len(conditions); i++ {
			accumulated = accumulated.And(conditions[i])
		}
		return accumulated
	}
}
