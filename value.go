package taskflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindList:   "list",
	KindMap:    "map",
}

// String returns the string representation
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func parseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is a tagged union carried through task inputs, outputs and the output store.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	list []Value
	m    map[string]Value
}

// Values maps output or input keys to values
type Values map[string]Value

// Clone returns a copy of the map. Values themselves are immutable.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Keys returns the keys in sorted order
func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func List(vs ...Value) Value { return Value{kind: KindList, list: append([]Value(nil), vs...)} }

// Bytes copies b into a new bytes Value
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, raw: append([]byte(nil), b...)}
}

// Map copies m into a new structured Value
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns a copy of the underlying bytes
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte(nil), v.raw...), true
}

// AsList returns a copy of the list elements
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// AsMap returns a copy of the structured fields
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.m))
	for k, val := range v.m {
		cp[k] = val
	}
	return cp, true
}

// Equal reports deep equality, including kind
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, val := range v.m {
			other, ok := o.m[k]
			if !ok || !val.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for logs and text bodies
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.raw))
	case KindList:
		parts := make([]string, len(v.list))
		for i, el := range v.list {
			parts[i] = el.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindMap:
		keys := Values(v.m).Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + v.m[k].String()
		}
		return "{" + strings.Join(parts, " ") + "}"
	}
	return "null"
}

// valueJSON is the wire envelope; exactly one payload field is set per kind
type valueJSON struct {
	Kind   string           `json:"kind"`
	Bool   *bool            `json:"bool,omitempty"`
	Int    *int64           `json:"int,omitempty"`
	Float  *float64         `json:"float,omitempty"`
	String *string          `json:"string,omitempty"`
	Bytes  []byte           `json:"bytes,omitempty"`
	List   []Value          `json:"list,omitempty"`
	Map    map[string]Value `json:"map,omitempty"`
}

// MarshalJSON encodes the value with its kind so it round-trips losslessly
func (v Value) MarshalJSON() ([]byte, error) {
	env := valueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindBool:
		env.Bool = ToPtr(v.b)
	case KindInt:
		env.Int = ToPtr(v.i)
	case KindFloat:
		// JSON has no NaN or Inf, so those travel as their strconv spelling
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			env.String = ToPtr(strconv.FormatFloat(v.f, 'g', -1, 64))
		} else {
			env.Float = ToPtr(v.f)
		}
	case KindString:
		env.String = ToPtr(v.s)
	case KindBytes:
		env.Bytes = v.raw
		if env.Bytes == nil {
			env.Bytes = []byte{}
		}
	case KindList:
		env.List = v.list
		if env.List == nil {
			env.List = []Value{}
		}
	case KindMap:
		env.Map = v.m
		if env.Map == nil {
			env.Map = map[string]Value{}
		}
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the kind envelope produced by MarshalJSON
func (v *Value) UnmarshalJSON(data []byte) error {
	var env valueJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	kind, err := parseKind(env.Kind)
	if err != nil {
		return err
	}

	out := Value{kind: kind}
	switch kind {
	case KindBool:
		if env.Bool != nil {
			out.b = *env.Bool
		}
	case KindInt:
		if env.Int != nil {
			out.i = *env.Int
		}
	case KindFloat:
		switch {
		case env.Float != nil:
			out.f = *env.Float
		case env.String != nil:
			f, err := strconv.ParseFloat(*env.String, 64)
			if err != nil {
				return fmt.Errorf("failed to unmarshal float value: %w", err)
			}
			out.f = f
		}
	case KindString:
		if env.String != nil {
			out.s = *env.String
		}
	case KindBytes:
		out.raw = env.Bytes
	case KindList:
		out.list = env.List
	case KindMap:
		out.m = env.Map
	}
	*v = out
	return nil
}
