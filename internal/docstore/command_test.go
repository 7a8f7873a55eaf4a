package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseCommandFind(t *testing.T) {
	cmd, err := ParseCommand(`db.products.find({"order_count": {"$gt": 5}}, {"_id": 1}, {"limit": 20, "sort": {"order_count": -1}});`)
	require.NoError(t, err)

	assert.Equal(t, "products", cmd.Collection)
	op, ok := cmd.Op.(FindOp)
	require.True(t, ok)
	assert.Equal(t, "find", op.Name())
	assert.Equal(t, int64(20), op.Options.Limit)
	assert.Equal(t, bson.D{{Key: "order_count", Value: int32(-1)}}, op.Options.Sort)
	assert.NotNil(t, op.Projection)
}

func TestParseCommandWithoutArgs(t *testing.T) {
	cmd, err := ParseCommand("orders.countDocuments()")
	require.NoError(t, err)

	op, ok := cmd.Op.(CountOp)
	require.True(t, ok)
	assert.Equal(t, bson.D{}, op.Filter)
}

func TestParseCommandExtendedJSON(t *testing.T) {
	cmd, err := ParseCommand(`orders.findOne({"created_at": {"$gte": {"$date": "2024-01-01T00:00:00Z"}}})`)
	require.NoError(t, err)
	assert.IsType(t, FindOneOp{}, cmd.Op)
}

func TestParseCommandUpdateVariants(t *testing.T) {
	cmd, err := ParseCommand(`products.updateMany({"price": null}, {"$set": {"price": 0}}, {"upsert": true})`)
	require.NoError(t, err)

	op, ok := cmd.Op.(UpdateOp)
	require.True(t, ok)
	assert.True(t, op.Many)
	assert.True(t, op.Upsert)
	assert.Equal(t, "updateMany", op.Name())

	_, err = ParseCommand(`products.updateOne({"_id": "p1"})`)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParseCommandRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"not a call", "show collections", ErrInvalidCommand},
		{"unknown method", `products.drop()`, ErrUnsupportedMethod},
		{"bad json", `products.find({"a": })`, ErrInvalidArgument},
		{"filter not document", `products.find(42)`, ErrInvalidArgument},
		{"delete without filter", `products.deleteMany()`, ErrInvalidArgument},
		{"empty insertMany", `products.insertMany([])`, ErrInvalidArgument},
		{"aggregate non-array", `products.aggregate({"$match": {}})`, ErrInvalidArgument},
		{"distinct without field", `products.distinct()`, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand(tt.text)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewCommandStructuredArgs(t *testing.T) {
	cmd, err := NewCommand("reviews", "aggregate", []byte(`[[{"$group": {"_id": "$product_id", "n": {"$sum": 1}}}]]`))
	require.NoError(t, err)

	op, ok := cmd.Op.(AggregateOp)
	require.True(t, ok)
	assert.Len(t, op.Pipeline, 1)

	cmd, err = NewCommand("reviews", "insertOne", []byte(`{"_id": "r1", "score": 5}`))
	require.NoError(t, err)
	assert.IsType(t, InsertOneOp{}, cmd.Op)

	_, err = NewCommand("$cmd", "find", nil)
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestMarshalResult(t *testing.T) {
	out, err := MarshalResult(bson.M{"deletedCount": int64(3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": {"deletedCount": 3}}`, string(out))

	out, err = MarshalResult(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result": null}`, string(out))
}

func TestFindLimit(t *testing.T) {
	assert.Equal(t, int64(MaxFindDocuments), FindOptions{}.EffectiveLimit())
	assert.Equal(t, int64(MaxFindDocuments), FindOptions{Limit: -5}.EffectiveLimit())
	assert.Equal(t, int64(20), FindOptions{Limit: 20}.EffectiveLimit())
	assert.Equal(t, int64(5000), FindOptions{Limit: 5000}.EffectiveLimit())

	cmd, err := ParseCommand(`products.find({}, null, {"limit": 2500})`)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cmd.Op.(FindOp).Options.EffectiveLimit())
}

func TestUnsupportedMethodListsAllowed(t *testing.T) {
	_, err := ParseCommand(`products.drop()`)
	require.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.Contains(t, err.Error(), "countDocuments")
}
