// Package mongo provides the MongoDB executor for the wisp data mapper.
// This file contains the condition-tree to bson filter translation and
// pattern helpers.
package mongo

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wispdb/wisp/core"
)

// statementFilter renders a statement's filter, tolerating its absence.
func statementFilter(stmt *core.Statement) bson.M {
	if stmt.Where == nil {
		return bson.M{}
	}
	return buildFilter(stmt.Where.Condition)
}

// buildFilter translates a condition tree into a bson filter document.
func buildFilter(condition *core.Condition) bson.M {
	if condition == nil || condition.Operator == nil {
		return bson.M{}
	}
	if len(condition.Children) > 0 {
		childFilterList := make([]bson.M, 0, len(condition.Children))
		for _, child := range condition.Children {
			childFilterList = append(childFilterList, buildFilter(child))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return bson.M{"$and": childFilterList}
		case core.OpOr:
			return bson.M{"$or": childFilterList}
		case core.OpNot:
			return bson.M{"$nor": childFilterList}
		default:
			return bson.M{}
		}
	}

	fieldName := condition.FieldName
	switch *condition.Operator {
	case core.OpNil:
		return bson.M{fieldName: bson.M{"$eq": nil}}
	case core.OpEq:
		return bson.M{fieldName: condition.Value}
	case core.OpGt:
		return bson.M{fieldName: bson.M{"$gt": condition.Value}}
	case core.OpGte:
		return bson.M{fieldName: bson.M{"$gte": condition.Value}}
	case core.OpLt:
		return bson.M{fieldName: bson.M{"$lt": condition.Value}}
	case core.OpLte:
		return bson.M{fieldName: bson.M{"$lte": condition.Value}}
	case core.OpLike:
		pattern := likePattern(fmt.Sprintf("%v", condition.Value))
		return bson.M{fieldName: primitive.Regex{Pattern: pattern, Options: "i"}}
	case core.OpIn:
		var array []any
		switch v := condition.Value.(type) {
		case []any:
			array = v
		default:
			array = []any{condition.Value}
		}
		return bson.M{fieldName: bson.M{"$in": array}}
	default:
		return bson.M{}
	}
}

// likePattern converts a SQL-like pattern into a regex pattern,
// replacing % with .* and _ with . while escaping everything else.
//
// Example:
//
//	likePattern("%admin_") == ".*admin."
func likePattern(input string) string {
	const percent = "__PERCENT__"
	const underscore = "__UNDERSCORE__"
	safe := strings.ReplaceAll(input, "%", percent)
	safe = strings.ReplaceAll(safe, "_", underscore)
	safe = regexp.QuoteMeta(safe)
	safe = strings.ReplaceAll(safe, percent, ".*")
	safe = strings.ReplaceAll(safe, underscore, ".")
	return safe
}
