package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// FromJSON parses a JSON document, keeping object fields in document order.
// Integral numbers become Int, all others Float.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON token: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("failed to read object key: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				if _, dup := obj.Get(key); dup {
					return nil, fmt.Errorf("duplicate object key %q", key)
				}
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, Field{Key: key, Value: item})
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("failed to close object: %w", err)
			}
			return obj, nil
		case '[':
			arr := Array{}
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("failed to close array: %w", err)
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return fromNumber(t)
	case string:
		return String(t), nil
	default:
		return nil, fmt.Errorf("unexpected JSON token %T", tok)
	}
}

func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (b Bool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

func (i Int) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(i))
}

func (f Float) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

func (s String) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal([]byte(b))
}

func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		encoded, err := marshalValue(item)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		encoded, err := marshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", f.Key, err)
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
