package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxFindDocuments caps find results when the caller gives no limit
const MaxFindDocuments = 1000

var (
	ErrInvalidCommand     = errors.New("invalid command")
	ErrUnsupportedMethod  = errors.New("unsupported method")
	ErrInvalidArgument    = errors.New("invalid argument")
	commandPattern        = regexp.MustCompile(`^\s*(?:db\.)?([A-Za-z_][\w-]*)\.([A-Za-z]+)\(([\s\S]*)\)\s*;?\s*$`)
	collectionNamePattern = regexp.MustCompile(`^[A-Za-z_][\w.-]*$`)
)

// Operation is one of the console's allow-listed collection operations.
// The set is closed: only types in this file implement it.
type Operation interface {
	Name() string
	execute(ctx context.Context, coll *mongo.Collection) (interface{}, error)
}

// Command binds an operation to a collection
type Command struct {
	Collection string
	Op         Operation
}

// ParseCommand parses the shell-like form `collection.method(args)` where
// args is a comma separated list of Extended JSON values.
func ParseCommand(text string) (Command, error) {
	m := commandPattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, fmt.Errorf("%w: expected collection.method(args)", ErrInvalidCommand)
	}
	return NewCommand(m[1], m[2], []byte("["+m[3]+"]"))
}

// NewCommand builds a command from its parts. rawArgs is an Extended JSON
// array; a single document is treated as a one-element array.
func NewCommand(collection, method string, rawArgs []byte) (Command, error) {
	if !collectionNamePattern.MatchString(collection) {
		return Command{}, fmt.Errorf("%w: bad collection name %q", ErrInvalidCommand, collection)
	}

	args, err := decodeArgs(rawArgs)
	if err != nil {
		return Command{}, err
	}

	op, err := decodeOperation(method, args)
	if err != nil {
		return Command{}, err
	}

	return Command{Collection: collection, Op: op}, nil
}

func decodeArgs(raw []byte) (bson.A, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return bson.A{}, nil
	}
	if raw[0] != '[' {
		raw = append(append([]byte("["), raw...), ']')
	}

	var wrapper struct {
		Args bson.A `bson:"args"`
	}
	doc := append(append([]byte(`{"args":`), raw...), '}')
	if err := bson.UnmarshalExtJSON(doc, false, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: arguments are not valid extended JSON: %v", ErrInvalidArgument, err)
	}
	if wrapper.Args == nil {
		return bson.A{}, nil
	}
	return wrapper.Args, nil
}

func decodeOperation(method string, args bson.A) (Operation, error) {
	switch method {
	case "find":
		filter, err := documentArg(args, 0, false)
		if err != nil {
			return nil, err
		}
		projection, err := optionalDocumentArg(args, 1)
		if err != nil {
			return nil, err
		}
		var opts FindOptions
		if err := structArg(args, 2, &opts); err != nil {
			return nil, err
		}
		return FindOp{Filter: filter, Projection: projection, Options: opts}, nil

	case "findOne":
		filter, err := documentArg(args, 0, false)
		if err != nil {
			return nil, err
		}
		projection, err := optionalDocumentArg(args, 1)
		if err != nil {
			return nil, err
		}
		return FindOneOp{Filter: filter, Projection: projection}, nil

	case "insertOne":
		doc, err := documentArg(args, 0, true)
		if err != nil {
			return nil, err
		}
		return InsertOneOp{Document: doc}, nil

	case "insertMany":
		docs, err := documentListArg(args, 0)
		if err != nil {
			return nil, err
		}
		return InsertManyOp{Documents: docs}, nil

	case "updateOne", "updateMany":
		filter, err := documentArg(args, 0, true)
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: %s requires an update document", ErrInvalidArgument, method)
		}
		update := args[1]
		if !isDocument(update) && !isArray(update) {
			return nil, fmt.Errorf("%w: update must be a document or pipeline", ErrInvalidArgument)
		}
		var opts UpdateOptions
		if err := structArg(args, 2, &opts); err != nil {
			return nil, err
		}
		return UpdateOp{Filter: filter, Update: update, Upsert: opts.Upsert, Many: method == "updateMany"}, nil

	case "deleteOne", "deleteMany":
		filter, err := documentArg(args, 0, true)
		if err != nil {
			return nil, err
		}
		return DeleteOp{Filter: filter, Many: method == "deleteMany"}, nil

	case "aggregate":
		if len(args) == 0 {
			return AggregateOp{Pipeline: bson.A{}}, nil
		}
		pipeline, ok := args[0].(bson.A)
		if !ok {
			return nil, fmt.Errorf("%w: aggregate expects a pipeline array", ErrInvalidArgument)
		}
		for i, stage := range pipeline {
			if !isDocument(stage) {
				return nil, fmt.Errorf("%w: pipeline stage %d is not a document", ErrInvalidArgument, i)
			}
		}
		return AggregateOp{Pipeline: pipeline}, nil

	case "countDocuments":
		filter, err := documentArg(args, 0, false)
		if err != nil {
			return nil, err
		}
		return CountOp{Filter: filter}, nil

	case "distinct":
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: distinct requires a field name", ErrInvalidArgument)
		}
		field, ok := args[0].(string)
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: distinct field must be a string", ErrInvalidArgument)
		}
		filter, err := documentArg(args, 1, false)
		if err != nil {
			return nil, err
		}
		return DistinctOp{Field: field, Filter: filter}, nil
	}

	return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedMethod, method, strings.Join(MethodNames(), ", "))
}

func isDocument(v interface{}) bool {
	switch v.(type) {
	case bson.D, bson.M:
		return true
	}
	return false
}

func isArray(v interface{}) bool {
	_, ok := v.(bson.A)
	return ok
}

func documentArg(args bson.A, i int, required bool) (interface{}, error) {
	if i >= len(args) || args[i] == nil {
		if required {
			return nil, fmt.Errorf("%w: argument %d is required", ErrInvalidArgument, i+1)
		}
		return bson.D{}, nil
	}
	if !isDocument(args[i]) {
		return nil, fmt.Errorf("%w: argument %d must be a document", ErrInvalidArgument, i+1)
	}
	return args[i], nil
}

func optionalDocumentArg(args bson.A, i int) (interface{}, error) {
	if i >= len(args) || args[i] == nil {
		return nil, nil
	}
	return documentArg(args, i, true)
}

func documentListArg(args bson.A, i int) ([]interface{}, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%w: argument %d is required", ErrInvalidArgument, i+1)
	}
	list, ok := args[i].(bson.A)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("%w: argument %d must be a non-empty array of documents", ErrInvalidArgument, i+1)
	}
	for j, doc := range list {
		if !isDocument(doc) {
			return nil, fmt.Errorf("%w: element %d is not a document", ErrInvalidArgument, j)
		}
	}
	return []interface{}(list), nil
}

// structArg decodes an optional options document into a typed struct
func structArg(args bson.A, i int, out interface{}) error {
	if i >= len(args) || args[i] == nil {
		return nil
	}
	if !isDocument(args[i]) {
		return fmt.Errorf("%w: argument %d must be an options document", ErrInvalidArgument, i+1)
	}
	raw, err := bson.Marshal(args[i])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// FindOptions is the optional third argument of find
type FindOptions struct {
	Limit int64  `bson:"limit"`
	Skip  int64  `bson:"skip"`
	Sort  bson.D `bson:"sort"`
}

// UpdateOptions is the optional third argument of updateOne/updateMany
type UpdateOptions struct {
	Upsert bool `bson:"upsert"`
}

type FindOp struct {
	Filter     interface{}
	Projection interface{}
	Options    FindOptions
}

func (FindOp) Name() string { return "find" }

// EffectiveLimit is the caller's positive limit, or MaxFindDocuments
func (o FindOptions) EffectiveLimit() int64 {
	if o.Limit <= 0 {
		return MaxFindDocuments
	}
	return o.Limit
}

func (op FindOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	opts := options.Find()
	if op.Projection != nil {
		opts.SetProjection(op.Projection)
	}
	if op.Options.Sort != nil {
		opts.SetSort(op.Options.Sort)
	}
	if op.Options.Skip > 0 {
		opts.SetSkip(op.Options.Skip)
	}
	opts.SetLimit(op.Options.EffectiveLimit())

	cursor, err := coll.Find(ctx, op.Filter, opts)
	if err != nil {
		return nil, err
	}
	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

type FindOneOp struct {
	Filter     interface{}
	Projection interface{}
}

func (FindOneOp) Name() string { return "findOne" }

func (op FindOneOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	opts := options.FindOne()
	if op.Projection != nil {
		opts.SetProjection(op.Projection)
	}
	var doc bson.M
	err := coll.FindOne(ctx, op.Filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

type InsertOneOp struct {
	Document interface{}
}

func (InsertOneOp) Name() string { return "insertOne" }

func (op InsertOneOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	res, err := coll.InsertOne(ctx, op.Document)
	if err != nil {
		return nil, err
	}
	return bson.M{"acknowledged": true, "insertedId": res.InsertedID}, nil
}

type InsertManyOp struct {
	Documents []interface{}
}

func (InsertManyOp) Name() string { return "insertMany" }

func (op InsertManyOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	res, err := coll.InsertMany(ctx, op.Documents)
	if err != nil {
		return nil, err
	}
	return bson.M{"acknowledged": true, "insertedIds": res.InsertedIDs}, nil
}

type UpdateOp struct {
	Filter interface{}
	Update interface{}
	Upsert bool
	Many   bool
}

func (op UpdateOp) Name() string {
	if op.Many {
		return "updateMany"
	}
	return "updateOne"
}

func (op UpdateOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	opts := options.Update().SetUpsert(op.Upsert)

	var res *mongo.UpdateResult
	var err error
	if op.Many {
		res, err = coll.UpdateMany(ctx, op.Filter, op.Update, opts)
	} else {
		res, err = coll.UpdateOne(ctx, op.Filter, op.Update, opts)
	}
	if err != nil {
		return nil, err
	}
	return bson.M{
		"acknowledged":  true,
		"matchedCount":  res.MatchedCount,
		"modifiedCount": res.ModifiedCount,
		"upsertedCount": res.UpsertedCount,
		"upsertedId":    res.UpsertedID,
	}, nil
}

type DeleteOp struct {
	Filter interface{}
	Many   bool
}

func (op DeleteOp) Name() string {
	if op.Many {
		return "deleteMany"
	}
	return "deleteOne"
}

func (op DeleteOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	var res *mongo.DeleteResult
	var err error
	if op.Many {
		res, err = coll.DeleteMany(ctx, op.Filter)
	} else {
		res, err = coll.DeleteOne(ctx, op.Filter)
	}
	if err != nil {
		return nil, err
	}
	return bson.M{"acknowledged": true, "deletedCount": res.DeletedCount}, nil
}

type AggregateOp struct {
	Pipeline bson.A
}

func (AggregateOp) Name() string { return "aggregate" }

func (op AggregateOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	cursor, err := coll.Aggregate(ctx, op.Pipeline)
	if err != nil {
		return nil, err
	}
	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

type CountOp struct {
	Filter interface{}
}

func (CountOp) Name() string { return "countDocuments" }

func (op CountOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	return coll.CountDocuments(ctx, op.Filter)
}

type DistinctOp struct {
	Field  string
	Filter interface{}
}

func (DistinctOp) Name() string { return "distinct" }

func (op DistinctOp) execute(ctx context.Context, coll *mongo.Collection) (interface{}, error) {
	return coll.Distinct(ctx, op.Field, op.Filter)
}

// Execute runs a parsed command and returns a result that marshals to
// Extended JSON.
func (s *Store) Execute(ctx context.Context, cmd Command) (interface{}, error) {
	if cmd.Op == nil {
		return nil, fmt.Errorf("%w: missing operation", ErrInvalidCommand)
	}
	return cmd.Op.execute(ctx, s.collection(cmd.Collection))
}

// MarshalResult renders an Execute result as relaxed Extended JSON wrapped
// in {"result": ...}.
func MarshalResult(result interface{}) ([]byte, error) {
	return bson.MarshalExtJSON(bson.M{"result": result}, false, false)
}

// MethodNames lists the allow-listed console methods
func MethodNames() []string {
	return strings.Fields("find findOne insertOne insertMany updateOne updateMany deleteOne deleteMany aggregate countDocuments distinct")
}
