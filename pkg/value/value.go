// Package value models the JSON-like data that travels inside a transaction
// envelope as a closed set of variants. Objects keep their field order, which
// the typed-data schema derivation depends on.
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Value is one of Null, Bool, Int, Float, String, Bytes, Array or Object.
type Value interface {
	isValue()
}

type Null struct{}

type Bool bool

type Int int64

type Float float64

type String string

type Bytes []byte

type Array []Value

// Object is an ordered list of fields. Keys are expected to be unique.
type Object []Field

type Field struct {
	Key   string
	Value Value
}

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Bytes) isValue()  {}
func (Array) isValue()  {}
func (Object) isValue() {}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for _, f := range o {
		keys = append(keys, f.Key)
	}
	return keys
}

// KindOf names the variant of v, used in error messages.
func KindOf(v Value) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Equal compares two values structurally. Object comparison ignores field order.
// Numbers compare by value, so Int(2) equals Float(2).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			f := float64(bv)
			return f == math.Trunc(f) && math.Abs(f) < 1<<63 && Int(f) == av
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Float:
			return av == bv
		case Int:
			return Equal(bv, av)
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytes.Equal(av, bv)
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for _, f := range av {
			other, found := bv.Get(f.Key)
			if !found || !Equal(f.Value, other) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// FromGo converts plain Go data (as produced by encoding/json or a CBOR
// decoder) into a Value. Map keys are sorted since Go maps carry no order.
func FromGo(in interface{}) (Value, error) {
	switch v := in.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(v), nil
	case int8:
		return Int(v), nil
	case int16:
		return Int(v), nil
	case int32:
		return Int(v), nil
	case int64:
		return Int(v), nil
	case uint:
		return fromUint(uint64(v))
	case uint8:
		return Int(v), nil
	case uint16:
		return Int(v), nil
	case uint32:
		return Int(v), nil
	case uint64:
		return fromUint(v)
	case float32:
		return Float(v), nil
	case float64:
		return Float(v), nil
	case json.Number:
		return fromNumber(v)
	case string:
		return String(v), nil
	case []byte:
		return Bytes(append([]byte(nil), v...)), nil
	case []string:
		arr := make(Array, 0, len(v))
		for _, s := range v {
			arr = append(arr, String(s))
		}
		return arr, nil
	case []interface{}:
		arr := make(Array, 0, len(v))
		for i, item := range v {
			converted, err := FromGo(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, converted)
		}
		return arr, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(v))
		for _, k := range keys {
			converted, err := FromGo(v[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj = append(obj, Field{Key: k, Value: converted})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported Go type %T", in)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", n.String(), err)
	}
	return Float(f), nil
}

// ToGo converts v back into plain Go data. Objects become map[string]interface{}.
func ToGo(v Value) interface{} {
	switch tv := v.(type) {
	case Bool:
		return bool(tv)
	case Int:
		return int64(tv)
	case Float:
		return float64(tv)
	case String:
		return string(tv)
	case Bytes:
		return []byte(tv)
	case Array:
		out := make([]interface{}, 0, len(tv))
		for _, item := range tv {
			out = append(out, ToGo(item))
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(tv))
		for _, f := range tv {
			out[f.Key] = ToGo(f.Value)
		}
		return out
	default:
		return nil
	}
}
