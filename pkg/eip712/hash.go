package eip712

import (
	"bytes"
	"fmt"
	stdmath "math"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

// leadingIdent matches the part of a type reference used for dependency
// lookup. A dotted subtype name therefore resolves to its root type.
var leadingIdent = regexp.MustCompile(`^\w*`)

// Hash returns keccak256(0x1901 ‖ domainSeparator ‖ hashStruct(message)).
func (td *TypedData) Hash() ([]byte, error) {
	domainSeparator, err := td.HashStruct(domainType, td.domainValue())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	messageHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}
	raw := make([]byte, 0, 2+len(domainSeparator)+len(messageHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, messageHash...)
	return crypto.Keccak256(raw), nil
}

func (td *TypedData) domainValue() value.Object {
	return value.Object{{Key: "name", Value: value.String(td.Domain.Name)}}
}

// EncodeType renders the type string of typeName followed by its dependencies in sorted order.
func (td *TypedData) EncodeType(typeName string) (string, error) {
	if _, ok := td.Types[typeName]; !ok {
		return "", fmt.Errorf("unknown type %q", typeName)
	}
	deps := map[string]struct{}{}
	td.dependencies(typeName, deps)
	delete(deps, typeName)

	sorted := make([]string, 0, len(deps))
	for dep := range deps {
		sorted = append(sorted, dep)
	}
	sort.Strings(sorted)

	var sb strings.Builder
	for _, name := range append([]string{typeName}, sorted...) {
		sb.WriteString(name)
		sb.WriteByte('(')
		for i, field := range td.Types[name] {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(field.Type)
			sb.WriteByte(' ')
			sb.WriteString(field.Name)
		}
		sb.WriteByte(')')
	}
	return sb.String(), nil
}

func (td *TypedData) dependencies(typeRef string, found map[string]struct{}) {
	name := leadingIdent.FindString(typeRef)
	if _, seen := found[name]; seen {
		return
	}
	fields, ok := td.Types[name]
	if !ok {
		return
	}
	found[name] = struct{}{}
	for _, field := range fields {
		td.dependencies(field.Type, found)
	}
}

// TypeHash is keccak256 of EncodeType.
func (td *TypedData) TypeHash(typeName string) ([]byte, error) {
	encoded, err := td.EncodeType(typeName)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256([]byte(encoded)), nil
}

// HashStruct is keccak256(typeHash ‖ encodeData(data)).
func (td *TypedData) HashStruct(typeName string, data value.Object) ([]byte, error) {
	encoded, err := td.encodeData(typeName, data)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

func (td *TypedData) encodeData(typeName string, data value.Object) ([]byte, error) {
	typeHash, err := td.TypeHash(typeName)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(typeHash)
	for _, field := range td.Types[typeName] {
		fieldValue, ok := data.Get(field.Name)
		if !ok {
			return nil, fmt.Errorf("%s.%s: missing value", typeName, field.Name)
		}
		encoded, err := td.encodeField(field.Type, fieldValue)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typeName, field.Name, err)
		}
		buf.Write(encoded)
	}
	return buf.Bytes(), nil
}

func (td *TypedData) encodeField(fieldType string, v value.Value) ([]byte, error) {
	if _, isStruct := td.Types[fieldType]; isStruct {
		obj, ok := v.(value.Object)
		if !ok {
			return nil, fmt.Errorf("expected object for %s, got %s", fieldType, value.KindOf(v))
		}
		return td.HashStruct(fieldType, obj)
	}

	switch {
	case fieldType == "string":
		s, ok := v.(value.String)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", value.KindOf(v))
		}
		return crypto.Keccak256([]byte(s)), nil
	case fieldType == "bytes":
		b, ok := v.(value.Bytes)
		if !ok {
			return nil, fmt.Errorf("expected bytes, got %s", value.KindOf(v))
		}
		return crypto.Keccak256(b), nil
	case strings.HasSuffix(fieldType, "]"):
		arr, ok := v.(value.Array)
		if !ok {
			return nil, fmt.Errorf("expected array for %s, got %s", fieldType, value.KindOf(v))
		}
		elemType := fieldType[:strings.LastIndex(fieldType, "[")]
		var buf bytes.Buffer
		for i, item := range arr {
			encoded, err := td.encodeField(elemType, item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			buf.Write(encoded)
		}
		return crypto.Keccak256(buf.Bytes()), nil
	case fieldType == "bool":
		b, ok := v.(value.Bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %s", value.KindOf(v))
		}
		word := make([]byte, 32)
		if b {
			word[31] = 1
		}
		return word, nil
	case fieldType == "uint256":
		n, err := toUint256(v)
		if err != nil {
			return nil, err
		}
		return math.U256Bytes(n), nil
	default:
		return nil, fmt.Errorf("unsupported field type %q", fieldType)
	}
}

func toUint256(v value.Value) (*big.Int, error) {
	var n *big.Int
	switch tv := v.(type) {
	case value.Int:
		n = big.NewInt(int64(tv))
	case value.Float:
		f := float64(tv)
		if stdmath.IsNaN(f) || stdmath.IsInf(f, 0) {
			return nil, fmt.Errorf("uint256 value %v is not finite", f)
		}
		var ok bool
		if n, ok = integral(f); !ok {
			return nil, fmt.Errorf("uint256 value %v is not an integer", f)
		}
	default:
		return nil, fmt.Errorf("expected number, got %s", value.KindOf(v))
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("uint256 value %s is negative", n)
	}
	if n.BitLen() > 256 {
		return nil, fmt.Errorf("uint256 value %s overflows", n)
	}
	return n, nil
}
