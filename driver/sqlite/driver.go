// Package sqlite provides the SQLite executor for the wisp data mapper,
// built on database/sql with the pure-Go modernc.org/sqlite driver. The
// SQL dialect mirrors the postgres executor with ? placeholders and
// RETURNING clauses, which SQLite has supported since 3.35.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/wispdb/wisp/core"
)

// Executor implements core.Executor on top of a *sql.DB.
type Executor struct {
	db *sql.DB
}

var _ core.Executor = (*Executor)(nil)

// NewExecutor opens a database handle for the given data source name,
// typically a file path or ":memory:".
func NewExecutor(dsn string) (*Executor, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &Executor{db: db}, nil
}

// DB exposes the underlying handle, for schema setup and pragmas.
func (e *Executor) DB() *sql.DB {
	return e.db
}

// Connect verifies the handle can reach the database.
func (e *Executor) Connect(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Ping verifies the handle can reach the database.
func (e *Executor) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close releases the handle.
func (e *Executor) Close(ctx context.Context) error {
	return e.db.Close()
}

// Begin starts a transaction. Statements issued under a context carrying
// the returned transaction (see core.WithTransaction) run inside it.
func (e *Executor) Begin(ctx context.Context) (core.Transaction, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTransaction{tx: tx}, nil
}

// execRows runs a row-returning statement, through the ambient
// transaction when the context carries one.
func (e *Executor) execRows(ctx context.Context, sqlQuery string, argList []any) (*sql.Rows, error) {
	if tx, ok := core.TransactionFrom(ctx).(*sqlTransaction); ok {
		return tx.tx.QueryContext(ctx, sqlQuery, argList...)
	}
	return e.db.QueryContext(ctx, sqlQuery, argList...)
}

// execResult runs a non-returning statement, through the ambient
// transaction when the context carries one, and reports the affected-row
// count.
func (e *Executor) execResult(ctx context.Context, sqlQuery string, argList []any) (int64, error) {
	var result sql.Result
	var err error
	if tx, ok := core.TransactionFrom(ctx).(*sqlTransaction); ok {
		result, err = tx.tx.ExecContext(ctx, sqlQuery, argList...)
	} else {
		result, err = e.db.ExecContext(ctx, sqlQuery, argList...)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Query executes a select statement and streams the matching rows.
func (e *Executor) Query(ctx context.Context, stmt *core.Statement) (*core.Seq[core.FieldSet], error) {
	argList := []any{}
	sqlQuery := fmt.Sprintf("SELECT %s FROM %q WHERE %s%s",
		columnListSQL(stmt.Columns), stmt.Table, whereSQL(stmt, &argList), tailSQL(stmt))
	rows, err := e.execRows(ctx, sqlQuery, argList)
	if err != nil {
		return nil, err
	}
	return rowSeq(rows)
}

// MutateKeys executes an insert, update, or delete and streams the
// requested columns of every affected row via a RETURNING clause.
func (e *Executor) MutateKeys(ctx context.Context, stmt *core.Statement) (*core.Seq[core.FieldSet], error) {
	var sqlQuery string
	argList := []any{}

	switch stmt.Verb {
	case core.VerbInsert:
		sqlQuery, argList = insertSQL(stmt, stmt.Columns)
	case core.VerbUpdate:
		sqlQuery = fmt.Sprintf("UPDATE %q SET %s WHERE %s RETURNING %s",
			stmt.Table, setSQL(stmt.Changes, &argList), whereSQL(stmt, &argList), columnListSQL(stmt.Columns))
	case core.VerbDelete:
		sqlQuery = fmt.Sprintf("DELETE FROM %q WHERE %s RETURNING %s",
			stmt.Table, whereSQL(stmt, &argList), columnListSQL(stmt.Columns))
	default:
		return nil, fmt.Errorf("sqlite: MutateKeys does not support verb %q", stmt.Verb)
	}

	rows, err := e.execRows(ctx, sqlQuery, argList)
	if err != nil {
		return nil, err
	}
	return rowSeq(rows)
}

// Mutate executes a mutation and returns the affected-row count. A
// select statement counts the matching rows instead.
func (e *Executor) Mutate(ctx context.Context, stmt *core.Statement) (int64, error) {
	argList := []any{}

	switch stmt.Verb {
	case core.VerbSelect:
		sqlQuery := fmt.Sprintf("SELECT COUNT(*) FROM %q WHERE %s", stmt.Table, whereSQL(stmt, &argList))
		var count int64
		rows, err := e.execRows(ctx, sqlQuery, argList)
		if err != nil {
			return 0, err
		}
		defer rows.Close()
		if rows.Next() {
			if err := rows.Scan(&count); err != nil {
				return 0, err
			}
		}
		return count, rows.Err()

	case core.VerbInsert:
		sqlQuery, insertArgs := insertSQL(stmt, nil)
		return e.execResult(ctx, sqlQuery, insertArgs)

	case core.VerbUpdate:
		sqlQuery := fmt.Sprintf("UPDATE %q SET %s WHERE %s",
			stmt.Table, setSQL(stmt.Changes, &argList), whereSQL(stmt, &argList))
		return e.execResult(ctx, sqlQuery, argList)

	case core.VerbDelete:
		sqlQuery := fmt.Sprintf("DELETE FROM %q WHERE %s", stmt.Table, whereSQL(stmt, &argList))
		return e.execResult(ctx, sqlQuery, argList)

	default:
		return 0, fmt.Errorf("sqlite: Mutate does not support verb %q", stmt.Verb)
	}
}

// rowSeq adapts *sql.Rows into a lazy FieldSet sequence. database/sql
// gives no value decoding hints, so every column scans into any.
func rowSeq(rows *sql.Rows) (*core.Seq[core.FieldSet], error) {
	columnList, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	seq := core.NewSeq(func() (core.FieldSet, bool, error) {
		if !rows.Next() {
			return core.FieldSet{}, false, rows.Err()
		}
		valueList := make([]any, len(columnList))
		scanList := make([]any, len(columnList))
		for i := range valueList {
			scanList[i] = &valueList[i]
		}
		if err := rows.Scan(scanList...); err != nil {
			return core.FieldSet{}, false, err
		}
		rowMap := make(map[string]any, len(columnList))
		for i, column := range columnList {
			rowMap[column] = valueList[i]
		}
		return core.NewFieldSet(rowMap), true, nil
	})
	return seq.OnClose(func() { _ = rows.Close() }), nil
}

// buildCondition renders a condition tree into SQL, appending bind
// values to argList.
func buildCondition(condition *core.Condition, argList *[]any) string {
	if condition == nil || condition.Operator == nil {
		return "1=1"
	}
	if len(condition.Children) > 0 {
		partList := make([]string, 0, len(condition.Children))
		for _, child := range condition.Children {
			partList = append(partList, buildCondition(child, argList))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return "(" + strings.Join(partList, " AND ") + ")"
		case core.OpOr:
			return "(" + strings.Join(partList, " OR ") + ")"
		case core.OpNot:
			return "NOT (" + strings.Join(partList, " AND ") + ")"
		}
	}

	column := fmt.Sprintf("%q", condition.FieldName)
	bind := func(value any) string {
		*argList = append(*argList, value)
		return "?"
	}

	switch *condition.Operator {
	case core.OpNil:
		return column + " IS NULL"
	case core.OpEq:
		return fmt.Sprintf("%s = %s", column, bind(condition.Value))
	case core.OpGt:
		return fmt.Sprintf("%s > %s", column, bind(condition.Value))
	case core.OpGte:
		return fmt.Sprintf("%s >= %s", column, bind(condition.Value))
	case core.OpLt:
		return fmt.Sprintf("%s < %s", column, bind(condition.Value))
	case core.OpLte:
		return fmt.Sprintf("%s <= %s", column, bind(condition.Value))
	case core.OpLike:
		return fmt.Sprintf("%s LIKE %s", column, bind(condition.Value))
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		if len(valueList) == 0 {
			return "1=0"
		}
		placeholderList := make([]string, 0, len(valueList))
		for _, value := range valueList {
			placeholderList = append(placeholderList, bind(value))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholderList, ", "))
	}
	return "1=1"
}

// whereSQL renders a statement's filter, tolerating its absence.
func whereSQL(stmt *core.Statement, argList *[]any) string {
	if stmt.Where == nil {
		return "1=1"
	}
	return buildCondition(stmt.Where.Condition, argList)
}

// tailSQL renders the ORDER BY / LIMIT / OFFSET suffix of a select.
func tailSQL(stmt *core.Statement) string {
	if stmt.Where == nil {
		return ""
	}
	var tail strings.Builder
	if len(stmt.Where.Sort) > 0 {
		orderPartList := make([]string, 0, len(stmt.Where.Sort))
		for _, sortItem := range stmt.Where.Sort {
			direction := "ASC"
			if sortItem.Order < 0 {
				direction = "DESC"
			}
			orderPartList = append(orderPartList, fmt.Sprintf("%q %s", sortItem.FieldName, direction))
		}
		tail.WriteString(" ORDER BY " + strings.Join(orderPartList, ", "))
	}
	if stmt.Where.Limit > 0 {
		fmt.Fprintf(&tail, " LIMIT %d", stmt.Where.Limit)
	}
	if stmt.Where.Offset > 0 {
		fmt.Fprintf(&tail, " OFFSET %d", stmt.Where.Offset)
	}
	return tail.String()
}

// columnListSQL renders a quoted column list, or * when no projection
// was requested.
func columnListSQL(columnList []string) string {
	if len(columnList) == 0 {
		return "*"
	}
	quotedList := make([]string, 0, len(columnList))
	for _, column := range columnList {
		quotedList = append(quotedList, fmt.Sprintf("%q", column))
	}
	return strings.Join(quotedList, ", ")
}

// setSQL renders the SET clause of an update in stable column order.
func setSQL(changes core.Changes, argList *[]any) string {
	columnList := make([]string, 0, len(changes))
	for column := range changes {
		columnList = append(columnList, column)
	}
	sort.Strings(columnList)
	partList := make([]string, 0, len(columnList))
	for _, column := range columnList {
		*argList = append(*argList, changes[column])
		partList = append(partList, fmt.Sprintf("%q = ?", column))
	}
	return strings.Join(partList, ", ")
}

// insertSQL renders a single multi-row INSERT over the union of the
// rows' columns, with an optional RETURNING clause.
func insertSQL(stmt *core.Statement, returning []string) (string, []any) {
	seen := map[string]bool{}
	columnList := []string{}
	for _, row := range stmt.Rows {
		for _, column := range row.Keys() {
			if !seen[column] {
				seen[column] = true
				columnList = append(columnList, column)
			}
		}
	}

	argList := []any{}
	tupleList := make([]string, 0, len(stmt.Rows))
	for _, row := range stmt.Rows {
		placeholderList := make([]string, 0, len(columnList))
		for _, column := range columnList {
			value, _ := row.Get(column)
			argList = append(argList, value)
			placeholderList = append(placeholderList, "?")
		}
		tupleList = append(tupleList, "("+strings.Join(placeholderList, ", ")+")")
	}

	sqlQuery := fmt.Sprintf("INSERT INTO %q (%s) VALUES %s",
		stmt.Table, columnListSQL(columnList), strings.Join(tupleList, ", "))
	if len(returning) > 0 {
		sqlQuery += " RETURNING " + columnListSQL(returning)
	}
	return sqlQuery, argList
}
