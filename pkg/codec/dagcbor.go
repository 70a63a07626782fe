// Package codec implements the binary (DAG-CBOR) and text (base64url) encodings
// used for transaction payloads and signature bundles.
package codec

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

// maxSafeInteger is the largest integral float encoded as a CBOR integer.
const maxSafeInteger = 1<<53 - 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		ShortestFloat: cbor.ShortestFloatNone,
		NaNConvert:    cbor.NaNConvertReject,
		InfConvert:    cbor.InfConvertReject,
		IndefLength:   cbor.IndefLengthForbidden,
		TagsMd:        cbor.TagsForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("invalid dag-cbor encode options: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		IndefLength:    cbor.IndefLengthForbidden,
		TagsMd:         cbor.TagsForbidden,
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("invalid dag-cbor decode options: %v", err))
	}
}

// Encode serializes v as DAG-CBOR. Map keys are written in canonical order
// (shorter keys first, then bytewise), integers in their shortest form and
// floats as 64-bit. Integral floats are written as integers.
func Encode(v value.Value) ([]byte, error) {
	native, err := toNative(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare value for dag-cbor")
	}
	out, err := encMode.Marshal(native)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode dag-cbor")
	}
	return out, nil
}

// Decode parses DAG-CBOR bytes. Object fields come back in canonical key order.
func Decode(data []byte) (value.Value, error) {
	var native interface{}
	if err := decMode.Unmarshal(data, &native); err != nil {
		return nil, &types.DecodeError{Err: err}
	}
	v, err := fromNative(native)
	if err != nil {
		return nil, &types.DecodeError{Err: err}
	}
	return v, nil
}

// Hash returns the sha2-256 multihash of data.
func Hash(data []byte) ([]byte, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to hash block: %w", err)
	}
	return mh, nil
}

// ContentIDFromBytes returns the CIDv1 (dag-cbor, sha2-256) of an encoded block.
func ContentIDFromBytes(block []byte) (cid.Cid, error) {
	mh, err := Hash(block)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.DagCBOR, mh), nil
}

// ContentID encodes v and returns the CID of the resulting block.
func ContentID(v value.Value) (cid.Cid, error) {
	block, err := Encode(v)
	if err != nil {
		return cid.Undef, err
	}
	return ContentIDFromBytes(block)
}

// CanonicalLess orders map keys the way DAG-CBOR does.
func CanonicalLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func toNative(v value.Value) (interface{}, error) {
	switch tv := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.Bool:
		return bool(tv), nil
	case value.Int:
		return int64(tv), nil
	case value.Float:
		f := float64(tv)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("float %v is not representable", f)
		}
		if f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger {
			return int64(f), nil
		}
		return f, nil
	case value.String:
		return string(tv), nil
	case value.Bytes:
		return []byte(tv), nil
	case value.Array:
		out := make([]interface{}, 0, len(tv))
		for i, item := range tv {
			n, err := toNative(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	case value.Object:
		out := make(map[string]interface{}, len(tv))
		for _, f := range tv {
			if _, dup := out[f.Key]; dup {
				return nil, fmt.Errorf("duplicate key %q", f.Key)
			}
			n, err := toNative(f.Value)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", f.Key, err)
			}
			out[f.Key] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

func fromNative(n interface{}) (value.Value, error) {
	switch tn := n.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(tn))
		for k := range tn {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return CanonicalLess(keys[i], keys[j]) })

		obj := make(value.Object, 0, len(tn))
		for _, k := range keys {
			item, err := fromNative(tn[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj = append(obj, value.Field{Key: k, Value: item})
		}
		return obj, nil
	case []interface{}:
		arr := make(value.Array, 0, len(tn))
		for i, item := range tn {
			v, err := fromNative(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		return value.FromGo(n)
	}
}
