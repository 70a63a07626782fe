// Package eip712 derives typed-data schemas from transaction envelopes and
// hashes them the way the VSC network verifies EVM signatures.
package eip712

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

const (
	// DefaultPrimaryType names the root struct of a transaction container.
	DefaultPrimaryType = "tx_container_v0"

	// DomainName is the only domain field the network signs over.
	DomainName = "vsc.network"

	domainType = "EIP712Domain"
)

var (
	// ErrUnsupportedArray is returned for empty arrays and arrays of objects, arrays or nulls.
	ErrUnsupportedArray = errors.New("unsupported array in typed data")

	// ErrUnsupportedValue is returned for values with no typed-data equivalent.
	ErrUnsupportedValue = errors.New("unsupported value in typed data")
)

// TypedData is a derived schema together with the message it describes.
type TypedData struct {
	Types       apitypes.Types
	PrimaryType string
	Domain      apitypes.TypedDataDomain
	Message     value.Object
}

// Derive builds the typed-data schema for an object. Nested objects become
// subtypes named after their path, joined by dots.
func Derive(v value.Value, primaryType string) (*TypedData, error) {
	if primaryType == "" {
		primaryType = DefaultPrimaryType
	}
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("%w: root must be an object, got %s", ErrUnsupportedValue, value.KindOf(v))
	}

	types := apitypes.Types{
		domainType: {{Name: "name", Type: "string"}},
	}
	if err := deriveStruct(obj, primaryType, types); err != nil {
		return nil, err
	}

	return &TypedData{
		Types:       types,
		PrimaryType: primaryType,
		Domain:      apitypes.TypedDataDomain{Name: DomainName},
		Message:     obj,
	}, nil
}

func deriveStruct(obj value.Object, typeName string, types apitypes.Types) error {
	fields := make([]apitypes.Type, 0, len(obj))
	for _, f := range obj {
		switch fv := f.Value.(type) {
		case value.Object:
			subtype := typeName + "." + f.Key
			if err := deriveStruct(fv, subtype, types); err != nil {
				return err
			}
			fields = append(fields, apitypes.Type{Name: f.Key, Type: subtype})
		case value.Array:
			if len(fv) == 0 {
				return fmt.Errorf("%w: %s.%s is empty", ErrUnsupportedArray, typeName, f.Key)
			}
			elemType, err := scalarType(fv[0])
			if err != nil {
				return fmt.Errorf("%w: %s.%s has %s elements", ErrUnsupportedArray, typeName, f.Key, value.KindOf(fv[0]))
			}
			fields = append(fields, apitypes.Type{Name: f.Key, Type: elemType + "[]"})
		default:
			fieldType, err := scalarType(fv)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", typeName, f.Key, err)
			}
			fields = append(fields, apitypes.Type{Name: f.Key, Type: fieldType})
		}
	}
	types[typeName] = fields
	return nil
}

func scalarType(v value.Value) (string, error) {
	switch v.(type) {
	case value.Int, value.Float:
		return "uint256", nil
	case value.String:
		return "string", nil
	case value.Bool:
		return "bool", nil
	case value.Bytes:
		return "bytes", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedValue, value.KindOf(v))
	}
}

// ApiTypedData returns the go-ethereum view of the typed data, as sent to
// remote eth_signTypedData_v4 signers. Integers are rendered as decimal strings
// and bytes as 0x-prefixed hex.
func (td *TypedData) ApiTypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types:       td.Types,
		PrimaryType: td.PrimaryType,
		Domain:      td.Domain,
		Message:     apiMessage(td.Message),
	}
}

func apiMessage(obj value.Object) apitypes.TypedDataMessage {
	out := make(apitypes.TypedDataMessage, len(obj))
	for _, f := range obj {
		out[f.Key] = apiValue(f.Value)
	}
	return out
}

func apiValue(v value.Value) interface{} {
	switch tv := v.(type) {
	case value.Object:
		return map[string]interface{}(apiMessage(tv))
	case value.Array:
		out := make([]interface{}, 0, len(tv))
		for _, item := range tv {
			out = append(out, apiValue(item))
		}
		return out
	case value.Int:
		return strconv.FormatInt(int64(tv), 10)
	case value.Float:
		if n, ok := integral(float64(tv)); ok {
			return n.String()
		}
		return float64(tv)
	case value.Bytes:
		return hexutil.Encode(tv)
	default:
		return value.ToGo(v)
	}
}

func integral(f float64) (*big.Int, bool) {
	bf := big.NewFloat(f)
	if !bf.IsInt() {
		return nil, false
	}
	n, _ := bf.Int(nil)
	return n, true
}
