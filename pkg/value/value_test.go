package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON(t *testing.T) {
	t.Run("keeps object field order", func(t *testing.T) {
		v, err := FromJSON([]byte(`{"z":1,"a":"x","m":{"b":true,"a":null}}`))
		require.NoError(t, err)

		obj, ok := v.(Object)
		require.True(t, ok)
		assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

		inner, found := obj.Get("m")
		require.True(t, found)
		assert.Equal(t, []string{"b", "a"}, inner.(Object).Keys())
	})

	t.Run("distinguishes ints and floats", func(t *testing.T) {
		v, err := FromJSON([]byte(`[1, 1.5, -3]`))
		require.NoError(t, err)
		assert.Equal(t, Array{Int(1), Float(1.5), Int(-3)}, v)
	})

	tests := []struct {
		name  string
		input string
	}{
		{name: "trailing data", input: `{} {}`},
		{name: "duplicate keys", input: `{"a":1,"a":2}`},
		{name: "truncated", input: `{"a":`},
		{name: "empty", input: ``},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestMarshalJSON_PreservesOrder(t *testing.T) {
	obj := Object{
		{Key: "op", Value: String("call")},
		{Key: "payload", Value: Object{{Key: "n", Value: Int(5)}, {Key: "list", Value: Array{Bool(true), Null{}}}}},
		{Key: "action", Value: String("transfer")},
	}

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"op":"call","payload":{"n":5,"list":[true,null]},"action":"transfer"}`, string(out))

	back, err := FromJSON(out)
	require.NoError(t, err)
	assert.Equal(t, obj, back)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{name: "objects ignore field order", a: Object{{"a", Int(1)}, {"b", Int(2)}}, b: Object{{"b", Int(2)}, {"a", Int(1)}}, want: true},
		{name: "int equals integral float", a: Int(1), b: Float(1), want: true},
		{name: "integral float equals int", a: Float(-7), b: Int(-7), want: true},
		{name: "int is not fractional float", a: Int(1), b: Float(1.5), want: false},
		{name: "bytes by content", a: Bytes{1, 2}, b: Bytes{1, 2}, want: true},
		{name: "array order matters", a: Array{Int(1), Int(2)}, b: Array{Int(2), Int(1)}, want: false},
		{name: "missing key", a: Object{{"a", Int(1)}}, b: Object{{"b", Int(1)}}, want: false},
		{name: "nulls", a: Null{}, b: Null{}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]interface{}{
		"b":     uint64(7),
		"a":     []interface{}{"x", 2.5},
		"bytes": []byte{0xde, 0xad},
	})
	require.NoError(t, err)

	expected := Object{
		{Key: "a", Value: Array{String("x"), Float(2.5)}},
		{Key: "b", Value: Int(7)},
		{Key: "bytes", Value: Bytes{0xde, 0xad}},
	}
	assert.Equal(t, expected, v)

	_, err = FromGo(uint64(1) << 63)
	assert.Error(t, err)

	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestToGo(t *testing.T) {
	v := Object{{Key: "n", Value: Int(3)}, {Key: "l", Value: Array{String("a")}}}
	assert.Equal(t, map[string]interface{}{"n": int64(3), "l": []interface{}{"a"}}, ToGo(v))
}
