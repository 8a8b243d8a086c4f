package sunspec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type Kind uint8

const (
	Absent Kind = iota
	Int
	Uint
	Float
	String
)

var kindNames = [...]string{"absent", "int", "uint", "float", "string"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return Absent, fmt.Errorf("unknown value kind %q", s)
}

// Value is a decoded register value. The zero Value is absent, which covers
// both registers never read and registers reporting a SunSpec sentinel.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	s    string
}

func IntValue(v int64) Value { return Value{kind: Int, i: v} }
func UintValue(v uint64) Value { return Value{kind: Uint, u: v} }
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }
func StringValue(v string) Value { return Value{kind: String, s: v} }

// ParseValue rebuilds a Value of kind k from its String form.
func ParseValue(k Kind, s string) (Value, error) {
	switch k {
	case Absent:
		return Value{}, nil
	case Int:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return IntValue(n), nil
	case Uint:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return UintValue(n), nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case String:
		return StringValue(s), nil
	}
	return Value{}, fmt.Errorf("unknown value kind %d", k)
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == Absent }
func (v Value) IsNumeric() bool { return v.kind == Int || v.kind == Uint || v.kind == Float }

// Int64 returns v as a signed integer. Floats and strings do not convert.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case Int:
		return v.i, true
	case Uint:
		if v.u > math.MaxInt64 {
			return 0, false
		}
		return int64(v.u), true
	}
	return 0, false
}

// Float64 returns any numeric value as a float.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case Int:
		return float64(v.i), true
	case Uint:
		return float64(v.u), true
	case Float:
		return v.f, true
	}
	return 0, false
}

func (v Value) Text() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

// Interface returns the underlying Go value, nil when absent.
func (v Value) Interface() any {
	switch v.kind {
	case Int:
		return v.i
	case Uint:
		return v.u
	case Float:
		return v.f
	case String:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Uint:
		return strconv.FormatUint(v.u, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case String:
		return v.s
	}
	return "N/A"
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Int:
		return v.i == o.i
	case Uint:
		return v.u == o.u
	case Float:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case String:
		return v.s == o.s
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Int, Uint:
		return []byte(v.String()), nil
	case Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return []byte(v.String()), nil
	case String:
		return json.Marshal(v.s)
	}
	return []byte("null"), nil
}

// MarshalYAML keeps YAML dumps consistent with the JSON form.
func (v Value) MarshalYAML() (any, error) {
	if v.kind == Float && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return nil, nil
	}
	return v.Interface(), nil
}
