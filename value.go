package tzcall

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Value is a native, JSON-shaped value to be encoded against a Type.
// This is a sealed interface - only types within this package can implement it.
type Value interface {
	// isValue is unexported to seal the interface.
	isValue()

	// MarshalJSON renders the value back to JSON.
	MarshalJSON() ([]byte, error)
}

// NullValue is the JSON null, used for None and unit.
type NullValue struct{}

// BoolValue is a JSON boolean.
type BoolValue bool

// NumberValue is a JSON number kept in its decimal text form so that
// arbitrarily large integers survive ingestion.
type NumberValue string

// StringValue is a JSON string.
type StringValue string

// ListValue is an ordered sequence.
type ListValue []Value

// ObjectValue is a JSON object. Map entries ({key, value}) and variants
// ({kind, value}) are objects with conventional field names.
type ObjectValue map[string]Value

func (NullValue) isValue()   {}
func (BoolValue) isValue()   {}
func (NumberValue) isValue() {}
func (StringValue) isValue() {}
func (ListValue) isValue()   {}
func (ObjectValue) isValue() {}

// MarshalJSON returns null.
func (NullValue) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON returns true or false.
func (v BoolValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(v))
}

// MarshalJSON returns the number verbatim.
func (v NumberValue) MarshalJSON() ([]byte, error) {
	if !json.Valid([]byte(v)) {
		return nil, fmt.Errorf("tzcall: invalid number %q", string(v))
	}
	return []byte(v), nil
}

// MarshalJSON returns the quoted string.
func (v StringValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

// MarshalJSON returns a JSON array.
func (v ListValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(item)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON returns a JSON object with sorted keys.
func (v ObjectValue) MarshalJSON() ([]byte, error) {
	raw := make(map[string]json.RawMessage, len(v))
	for k, item := range v {
		b, err := marshalValue(item)
		if err != nil {
			return nil, err
		}
		raw[k] = b
	}
	return json.Marshal(raw)
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// Field returns the named field and whether it is present.
func (v ObjectValue) Field(name string) (Value, bool) {
	f, ok := v[name]
	return f, ok
}

// Entry creates a map entry value.
func Entry(key, value Value) ObjectValue {
	return ObjectValue{"key": key, "value": value}
}

// Left creates the left branch of an or value.
func Left(v Value) ObjectValue {
	return ObjectValue{"kind": StringValue("left"), "value": v}
}

// Right creates the right branch of an or value.
func Right(v Value) ObjectValue {
	return ObjectValue{"kind": StringValue("right"), "value": v}
}

// NewValue converts a Go value into a Value.
// Supported types:
//   - nil (null)
//   - bool, string, json.Number
//   - signed and unsigned integers, finite floats, *big.Int
//   - []byte (0x-prefixed hex string)
//   - time.Time (RFC 3339 string)
//   - slices and arrays of supported types
//   - maps with string keys
//   - Value (returned as is)
func NewValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return NullValue{}, nil
	case Value:
		return val, nil
	case bool:
		return BoolValue(val), nil
	case string:
		return StringValue(val), nil
	case json.Number:
		return NumberValue(val), nil
	case int:
		return NumberValue(strconv.FormatInt(int64(val), 10)), nil
	case int8:
		return NumberValue(strconv.FormatInt(int64(val), 10)), nil
	case int16:
		return NumberValue(strconv.FormatInt(int64(val), 10)), nil
	case int32:
		return NumberValue(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return NumberValue(strconv.FormatInt(val, 10)), nil
	case uint:
		return NumberValue(strconv.FormatUint(uint64(val), 10)), nil
	case uint8:
		return NumberValue(strconv.FormatUint(uint64(val), 10)), nil
	case uint16:
		return NumberValue(strconv.FormatUint(uint64(val), 10)), nil
	case uint32:
		return NumberValue(strconv.FormatUint(uint64(val), 10)), nil
	case uint64:
		return NumberValue(strconv.FormatUint(val, 10)), nil
	case float32:
		return floatValue(float64(val))
	case float64:
		return floatValue(val)
	case *big.Int:
		if val == nil {
			return NullValue{}, nil
		}
		return NumberValue(val.String()), nil
	case []byte:
		return StringValue(hexutil.Encode(val)), nil
	case time.Time:
		return StringValue(val.UTC().Format(time.RFC3339)), nil
	case []any:
		out := make(ListValue, 0, len(val))
		for _, item := range val {
			converted, err := NewValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case map[string]any:
		out := make(ObjectValue, len(val))
		for k, item := range val {
			converted, err := NewValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	}

	// Typed slices and maps ([]string, map[string]int, ...)
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make(ListValue, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			converted, err := NewValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(ObjectValue, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			converted, err := NewValue(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = converted
		}
		return out, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return NullValue{}, nil
		}
		return NewValue(rv.Elem().Interface())
	}

	return nil, &EncodingError{Err: ErrShapeMismatch, Detail: fmt.Sprintf("unsupported Go type %T", v)}
}

// MustValue is like NewValue but panics on error.
func MustValue(v any) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &EncodingError{Err: ErrTypeMismatch, Detail: "non-finite number"}
	}
	return NumberValue(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// ParseValue decodes JSON into a Value, keeping numbers exact.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("tzcall: parse value: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("tzcall: parse value: trailing data")
	}
	return NewValue(raw)
}
