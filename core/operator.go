// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the closed set of operators a Condition may carry.
// Drivers translate each operator into their own dialect; the core never
// evaluates them.
package core

// Operator identifies how a condition compares its field against its
// value, or how it combines its child conditions.
type Operator string

const (
	// opAnd, opOr, and opNot are structural: they carry no field or
	// value of their own and operate on Condition.Children.
	opAnd Operator = "AND"
	opOr  Operator = "OR"
	opNot Operator = "NOT"

	// opNil matches rows where the field is absent or bound to null.
	// It ignores the condition's value.
	opNil Operator = "NIL"

	opEq  Operator = "EQ"
	opGt  Operator = "GT"
	opGte Operator = "GTE"
	opLt  Operator = "LT"
	opLte Operator = "LTE"

	// opLike matches a pattern with % (any run) and _ (any single
	// character) wildcards. SQL drivers render it as LIKE/ILIKE; the
	// mongo driver compiles it to an anchored case-insensitive regex.
	opLike Operator = "LIKE"

	// opIn tests membership of the field's value in the condition's
	// value, which holds a []any. An empty list matches nothing.
	opIn Operator = "IN"
)

// Exported operator values, for building or inspecting conditions
// directly rather than through the Field chainers. A Condition stores
// its operator by pointer, so these are variables.
//
// Example:
//
//	cond := &core.Condition{FieldName: "capacity", Operator: &core.OpGt, Value: 100}
var (
	OpAnd  = opAnd
	OpOr   = opOr
	OpNot  = opNot
	OpNil  = opNil
	OpEq   = opEq
	OpGt   = opGt
	OpGte  = opGte
	OpLt   = opLt
	OpLte  = opLte
	OpLike = opLike
	OpIn   = opIn
)
