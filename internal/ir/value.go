package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing the scalar types a variable can
// take. Only Bool, Int and Float implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Bool is a boolean observation or threshold.
type Bool bool

func (Bool) irValue() {}

// Int is an integer observation or threshold.
// Always int64 so comparisons between ints stay exact.
type Int int64

func (Int) irValue() {}

// Float is a floating point observation or threshold.
// NaN and infinities are rejected at every construction boundary.
type Float float64

func (Float) irValue() {}

// Kind tags the data kind of a variable.
type Kind int

const (
	KindFloat Kind = iota // zero value: the original default dtype
	KindInt
	KindBool
)

// String returns the canonical spelling used in rule tables.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k == KindBool || k == KindInt || k == KindFloat
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a kind name. Accepts the long spellings used by the
// original dtype tags (boolean, integer) as well as the short ones.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	default:
		return 0, fmt.Errorf("unknown kind %q: must be bool, int, or float", s)
	}
}

// KindOf returns the kind of a value.
func KindOf(v Value) Kind {
	switch v.(type) {
	case Bool:
		return KindBool
	case Int:
		return KindInt
	default:
		return KindFloat
	}
}

// NameKind is the kind given to a variable first seen by name alongside v:
// bool for a Bool and float for any number, so later readings of either
// numeric kind still fit.
func NameKind(v Value) Kind {
	if _, ok := v.(Bool); ok {
		return KindBool
	}
	return KindFloat
}

// FormatValue renders a value for diagnostics (repr-style, not JSON).
func FormatValue(v Value) string {
	switch val := v.(type) {
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ValueFromAny converts a decoded Go value (YAML, JSON, CUE export, test
// literal) into a Value. Strings are not accepted: use ParseValue for text.
func ValueFromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid value")
	case Value:
		if f, ok := val.(Float); ok {
			return checkFloat(float64(f))
		}
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintValue(val)
	case float32:
		return checkFloat(float64(val))
	case float64:
		return checkFloat(val)
	case json.Number:
		return parseNumber(string(val))
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d out of int64 range", u)
	}
	return Int(u), nil
}

func checkFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v is not a valid value", f)
	}
	return Float(f), nil
}

// ParseValue parses the textual form used on the command line:
// true/false, an integer literal, or a float literal.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "":
		return nil, fmt.Errorf("empty value")
	}
	return parseNumber(s)
}

func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return checkFloat(f)
}

// Coerce converts v to kind k.
//
// Int widens to Float. Float narrows to Int only when integral. Bool never
// converts to or from a number.
func Coerce(v Value, k Kind) (Value, error) {
	switch k {
	case KindBool:
		if b, ok := v.(Bool); ok {
			return b, nil
		}
	case KindInt:
		switch val := v.(type) {
		case Int:
			return val, nil
		case Float:
			f := float64(val)
			if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
				return Int(int64(f)), nil
			}
		}
	case KindFloat:
		switch val := v.(type) {
		case Float:
			return val, nil
		case Int:
			return Float(float64(val)), nil
		}
	default:
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return nil, fmt.Errorf("cannot use %s value %s as %s", KindOf(v), FormatValue(v), k)
}

// Compare orders a against b, returning -1, 0 or +1.
//
// Two Ints compare exactly. Any other numeric pair compares as float64.
// Bools compare only with Bools, with false < true.
func Compare(a, b Value) (int, error) {
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare bool with %s", KindOf(b))
		}
		switch {
		case x == y:
			return 0, nil
		case !bool(x):
			return -1, nil
		default:
			return 1, nil
		}
	case Int:
		switch y := b.(type) {
		case Int:
			return cmpOrdered(int64(x), int64(y)), nil
		case Float:
			return cmpOrdered(float64(x), float64(y)), nil
		}
	case Float:
		switch y := b.(type) {
		case Int:
			return cmpOrdered(float64(x), float64(y)), nil
		case Float:
			return cmpOrdered(float64(x), float64(y)), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", kindName(a), kindName(b))
}

func kindName(v Value) string {
	if v == nil {
		return "nil"
	}
	return KindOf(v).String()
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MarshalValue marshals a Value to JSON bytes.
// Floats always carry a decimal point or exponent so UnmarshalValue reads
// them back as Float.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		return json.Marshal(bool(val))
	case Int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Float:
		return formatFloat(float64(val))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

func formatFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float %v cannot be marshaled", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// UnmarshalValue decodes a JSON scalar into a Value.
// Numbers without a fraction or exponent become Int, others Float.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ValueFromAny(raw)
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	return cmpOrdered(int64(len(a16)), int64(len(b16)))
}
