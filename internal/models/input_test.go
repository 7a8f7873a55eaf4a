package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexNumberDecode(t *testing.T) {
	tests := []struct {
		raw    string
		set    bool
		valid  bool
		finite bool
		value  float64
	}{
		{`2`, true, true, true, 2},
		{`"9.99"`, true, true, true, 9.99},
		{`" 3 "`, true, true, true, 3},
		{`"abc"`, true, false, false, 0},
		{`"Infinity"`, true, true, false, math.Inf(1)},
		{`"NaN"`, true, true, false, 0},
		{`true`, true, false, false, 0},
		{`{"amount": 1}`, true, false, false, 0},
		{`null`, false, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n FlexNumber
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &n))
			assert.Equal(t, tt.set, n.Set)
			assert.Equal(t, tt.valid, n.Valid)
			assert.Equal(t, tt.finite, n.Finite())
			if tt.finite {
				assert.Equal(t, tt.value, n.Value)
			}
		})
	}
}

func TestFlexNumberAbsent(t *testing.T) {
	var item OrderItemInput
	require.NoError(t, json.Unmarshal([]byte(`{"id": "p1"}`), &item))
	assert.False(t, item.Quantity.Set)
	assert.False(t, item.Price.Set)
}

func TestFlexStringDecode(t *testing.T) {
	var item OrderItemInput
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "product_id": ["x"], "seller_id": "s1"}`), &item))
	assert.Equal(t, FlexString("42"), item.ID)
	assert.Equal(t, FlexString(""), item.ProductID)
	assert.Equal(t, FlexString("s1"), item.SellerID)
}

func TestFlexNumberEncode(t *testing.T) {
	out, err := json.Marshal(struct {
		A FlexNumber `json:"a"`
		B FlexNumber `json:"b"`
		C FlexNumber `json:"c"`
	}{Number(1.5), FlexNumber{}, Number(math.Inf(1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1.5, "b": null, "c": null}`, string(out))
}
