package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind enumerates the value shapes a context entry may hold.
type ValueKind int

const (
	// KindInvalid marks the zero Value.
	KindInvalid ValueKind = iota
	// KindString is a UTF-8 string.
	KindString
	// KindNumber is a float64 (integers are normalized).
	KindNumber
	// KindBool is a boolean.
	KindBool
	// KindMap is a nested ContextData mapping.
	KindMap
)

// String returns the lower-case name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a closed tagged union over the supported context value kinds.
// Values are immutable; nested maps are copied on construction and on read.
type Value struct {
	kind ValueKind
	s    string
	n    float64
	b    bool
	m    ContextData
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// MapValue wraps a nested mapping. The mapping is deep copied.
func MapValue(m ContextData) Value { return Value{kind: KindMap, m: m.Clone()} }

// ValueOf converts a dynamic Go value into a Value. Supported inputs are
// strings, booleans, all integer and float types, Value, ContextData,
// map[string]string and map[string]any (recursively). Anything else,
// including nil, NaN and infinities, is rejected with ErrInvalidArgument.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case Value:
		if t.kind == KindInvalid {
			return Value{}, invalidValue(v)
		}
		if t.kind == KindMap {
			if err := t.m.Validate(); err != nil {
				return Value{}, err
			}
		}
		return t.clone(), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return NumberValue(float64(t)), nil
	case int8:
		return NumberValue(float64(t)), nil
	case int16:
		return NumberValue(float64(t)), nil
	case int32:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case uint:
		return NumberValue(float64(t)), nil
	case uint8:
		return NumberValue(float64(t)), nil
	case uint16:
		return NumberValue(float64(t)), nil
	case uint32:
		return NumberValue(float64(t)), nil
	case uint64:
		return NumberValue(float64(t)), nil
	case float32:
		return numberValue(float64(t), v)
	case float64:
		return numberValue(t, v)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, invalidValue(v)
		}
		return numberValue(f, v)
	case ContextData:
		if err := t.Validate(); err != nil {
			return Value{}, err
		}
		return MapValue(t), nil
	case map[string]string:
		m := make(ContextData, len(t))
		for k, s := range t {
			m[k] = StringValue(s)
		}
		return Value{kind: KindMap, m: m}, nil
	case map[string]any:
		m, err := NewContextData(t)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: m}, nil
	default:
		return Value{}, invalidValue(v)
	}
}

func numberValue(f float64, orig any) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, invalidValue(orig)
	}
	return NumberValue(f), nil
}

func invalidValue(v any) error {
	return NewError("value", ErrInvalidArgument, fmt.Errorf("unsupported context value type %T", v))
}

// Kind reports the shape of the value.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Number returns the numeric payload and whether the value is a number.
func (v Value) Number() (float64, bool) { return v.n, v.kind == KindNumber }

// Bool returns the boolean payload and whether the value is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Map returns a copy of the nested mapping and whether the value is a map.
func (v Value) Map() (ContextData, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m.Clone(), true
}

// Interface converts the value back into plain Go types
// (string, float64, bool, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindMap:
		return v.m.ToMap()
	default:
		return nil
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return true
	}
}

// String renders scalars plainly and maps as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		b, err := json.Marshal(v.m)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindMap {
		return json.Marshal(v.m)
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) clone() Value {
	if v.kind == KindMap {
		v.m = v.m.Clone()
	}
	return v
}

// ContextData is the key/value bag attached to an agent.
type ContextData map[string]Value

// NewContextData validates and converts a dynamic mapping. The whole mapping
// is rejected on the first unsupported value or empty key.
func NewContextData(m map[string]any) (ContextData, error) {
	out := make(ContextData, len(m))
	for k, raw := range m {
		if k == "" {
			return nil, NewError("context", ErrInvalidArgument, fmt.Errorf("empty context key"))
		}
		v, err := ValueOf(raw)
		if err != nil {
			return nil, NewError("context", ErrInvalidArgument, fmt.Errorf("key %q: %w", k, err))
		}
		out[k] = v
	}
	return out, nil
}

// Validate reports empty keys and zero Values at any depth.
func (c ContextData) Validate() error {
	for k, v := range c {
		if k == "" {
			return NewError("context", ErrInvalidArgument, fmt.Errorf("empty context key"))
		}
		switch v.kind {
		case KindInvalid:
			return NewError("context", ErrInvalidArgument, fmt.Errorf("key %q: zero value", k))
		case KindMap:
			if err := v.m.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy. Clone of nil is an empty, non-nil mapping.
func (c ContextData) Clone() ContextData {
	out := make(ContextData, len(c))
	for k, v := range c {
		out[k] = v.clone()
	}
	return out
}

// Keys returns the keys in sorted order.
func (c ContextData) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep equality.
func (c ContextData) Equal(o ContextData) bool {
	if len(c) != len(o) {
		return false
	}
	for k, v := range c {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// ToMap converts the mapping into plain Go values.
func (c ContextData) ToMap() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v.Interface()
	}
	return out
}

// String renders "key=value" pairs in key order separated by a space.
func (c ContextData) String() string {
	var sb strings.Builder
	for i, k := range c.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(c[k].String())
	}
	return sb.String()
}
