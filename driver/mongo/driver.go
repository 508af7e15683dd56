// Package mongo provides the MongoDB executor for the wisp data mapper.
// Collections stand in for tables; the condition tree translates to bson
// filters. Selects stream lazily from the cursor. Mutations have no
// RETURNING equivalent, so key-shaped updates and deletes pre-select the
// matching keys before applying the change.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wispdb/wisp/core"
)

// Executor implements core.Executor on top of a mongo.Client. Every
// statement's Table names a collection in the configured database.
type Executor struct {
	client   *mongo.Client
	database string
}

var _ core.Executor = (*Executor)(nil)

// NewExecutor connects a client to the given URI and pins the database
// all statements run against.
func NewExecutor(ctx context.Context, uri string, database string) (*Executor, error) {
	opts := mopt.Client().ApplyURI(uri)
	opts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Executor{client: client, database: database}, nil
}

// Connect verifies the client can reach the server.
func (e *Executor) Connect(ctx context.Context) error {
	return e.client.Ping(ctx, nil)
}

// Ping verifies the client can reach the server.
func (e *Executor) Ping(ctx context.Context) error {
	return e.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (e *Executor) Close(ctx context.Context) error {
	return e.client.Disconnect(ctx)
}

// Begin starts a session-backed transaction. Statements issued under a
// context carrying the returned transaction (see core.WithTransaction)
// run inside it.
func (e *Executor) Begin(ctx context.Context) (core.Transaction, error) {
	session, err := e.client.StartSession()
	if err != nil {
		return nil, err
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &mongoTransaction{session: session}, nil
}

// coll resolves the statement's collection.
func (e *Executor) coll(stmt *core.Statement) *mongo.Collection {
	return e.client.Database(e.database).Collection(stmt.Table)
}

// withSession rebinds the context to the ambient transaction's session
// when the context carries one.
func (e *Executor) withSession(ctx context.Context) context.Context {
	if tx, ok := core.TransactionFrom(ctx).(*mongoTransaction); ok {
		return mongo.NewSessionContext(ctx, tx.session)
	}
	return ctx
}

// findOptions translates the statement's sort and paging into Find
// options, plus a projection when columns were requested.
func findOptions(stmt *core.Statement, columns []string) *mopt.FindOptions {
	findOpts := mopt.Find()
	if len(columns) > 0 {
		projection := bson.M{"_id": 0}
		for _, column := range columns {
			projection[column] = 1
		}
		findOpts.SetProjection(projection)
	}
	if stmt.Where == nil {
		return findOpts
	}
	if len(stmt.Where.Sort) > 0 {
		sortDoc := bson.D{}
		for _, sortItem := range stmt.Where.Sort {
			direction := 1
			if sortItem.Order < 0 {
				direction = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: sortItem.FieldName, Value: direction})
		}
		findOpts.SetSort(sortDoc)
	}
	if stmt.Where.Limit > 0 {
		findOpts.SetLimit(int64(stmt.Where.Limit))
	}
	if stmt.Where.Offset > 0 {
		findOpts.SetSkip(int64(stmt.Where.Offset))
	}
	return findOpts
}

// cursorSeq adapts a cursor into a lazy FieldSet sequence. Documents are
// decoded as the caller pulls; the cursor is released on exhaustion,
// error, or Close.
func cursorSeq(ctx context.Context, cursor *mongo.Cursor) *core.Seq[core.FieldSet] {
	seq := core.NewSeq(func() (core.FieldSet, bool, error) {
		if !cursor.Next(ctx) {
			return core.FieldSet{}, false, cursor.Err()
		}
		var document bson.M
		if err := cursor.Decode(&document); err != nil {
			return core.FieldSet{}, false, err
		}
		return core.NewFieldSet(map[string]any(document)), true, nil
	})
	return seq.OnClose(func() { _ = cursor.Close(ctx) })
}

// Query executes a find and streams the matching documents.
func (e *Executor) Query(ctx context.Context, stmt *core.Statement) (*core.Seq[core.FieldSet], error) {
	ctx = e.withSession(ctx)
	filter := statementFilter(stmt)
	cursor, err := e.coll(stmt).Find(ctx, filter, findOptions(stmt, stmt.Columns))
	if err != nil {
		return nil, err
	}
	return cursorSeq(ctx, cursor), nil
}

// MutateKeys executes a mutation and streams the requested columns of
// every affected document.
//
// Inserts use InsertMany and project the keys from the inserted rows,
// substituting the driver-generated _id where a row did not carry one.
// Updates and deletes pre-select the matching keys, then apply the
// change, so the keys observed are those of the documents the mutation
// touched.
func (e *Executor) MutateKeys(ctx context.Context, stmt *core.Statement) (*core.Seq[core.FieldSet], error) {
	ctx = e.withSession(ctx)

	switch stmt.Verb {
	case core.VerbInsert:
		documentList := make([]any, 0, len(stmt.Rows))
		for _, row := range stmt.Rows {
			documentList = append(documentList, bson.M(row.Map()))
		}
		result, err := e.coll(stmt).InsertMany(ctx, documentList)
		if err != nil {
			return nil, err
		}
		keyList := make([]core.FieldSet, 0, len(stmt.Rows))
		for i, row := range stmt.Rows {
			keyMap := make(map[string]any, len(stmt.Columns))
			for _, column := range stmt.Columns {
				if value, ok := row.Get(column); ok {
					keyMap[column] = value
				} else if column == "_id" && i < len(result.InsertedIDs) {
					keyMap[column] = result.InsertedIDs[i]
				}
			}
			keyList = append(keyList, core.NewFieldSet(keyMap))
		}
		return core.SeqOf(keyList...), nil

	case core.VerbUpdate, core.VerbDelete:
		filter := statementFilter(stmt)
		cursor, err := e.coll(stmt).Find(ctx, filter, findOptions(stmt, stmt.Columns))
		if err != nil {
			return nil, err
		}
		keyList, err := core.CollectSeq(cursorSeq(ctx, cursor))
		if err != nil {
			return nil, err
		}
		if stmt.Verb == core.VerbUpdate {
			_, err = e.coll(stmt).UpdateMany(ctx, filter, bson.M{"$set": bson.M(stmt.Changes)})
		} else {
			_, err = e.coll(stmt).DeleteMany(ctx, filter)
		}
		if err != nil {
			return nil, err
		}
		return core.SeqOf(keyList...), nil

	default:
		return nil, fmt.Errorf("mongo: MutateKeys does not support verb %q", stmt.Verb)
	}
}

// Mutate executes a mutation and returns the affected-document count. A
// select statement counts the matching documents instead.
func (e *Executor) Mutate(ctx context.Context, stmt *core.Statement) (int64, error) {
	ctx = e.withSession(ctx)

	switch stmt.Verb {
	case core.VerbSelect:
		return e.coll(stmt).CountDocuments(ctx, statementFilter(stmt))

	case core.VerbInsert:
		documentList := make([]any, 0, len(stmt.Rows))
		for _, row := range stmt.Rows {
			documentList = append(documentList, bson.M(row.Map()))
		}
		result, err := e.coll(stmt).InsertMany(ctx, documentList)
		if err != nil {
			return 0, err
		}
		return int64(len(result.InsertedIDs)), nil

	case core.VerbUpdate:
		result, err := e.coll(stmt).UpdateMany(ctx, statementFilter(stmt), bson.M{"$set": bson.M(stmt.Changes)})
		if err != nil {
			return 0, err
		}
		return result.MatchedCount, nil

	case core.VerbDelete:
		result, err := e.coll(stmt).DeleteMany(ctx, statementFilter(stmt))
		if err != nil {
			return 0, err
		}
		return result.DeletedCount, nil

	default:
		return 0, fmt.Errorf("mongo: Mutate does not support verb %q", stmt.Verb)
	}
}
