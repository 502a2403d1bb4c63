package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the active variant of a Value.
type Kind uint8

// Value kinds. KindNull marks the absent sentinel.
const (
	KindNull Kind = iota
	KindBoolean
	KindByte
	KindShort
	KindInteger
	KindLong
	KindFloat
	KindDouble
	KindString
)

var kindNames = map[Kind]string{
	KindNull:    "NULL",
	KindBoolean: "BOOLEAN",
	KindByte:    "BYTE",
	KindShort:   "SHORT",
	KindInteger: "INTEGER",
	KindLong:    "LONG",
	KindFloat:   "FLOAT",
	KindDouble:  "DOUBLE",
	KindString:  "STRING",
}

// String returns the upper-case kind name (e.g. "INTEGER").
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsInteger reports whether k is one of BYTE, SHORT, INTEGER or LONG.
func (k Kind) IsInteger() bool {
	return k == KindByte || k == KindShort || k == KindInteger || k == KindLong
}

// IsFloating reports whether k is FLOAT or DOUBLE.
func (k Kind) IsFloating() bool {
	return k == KindFloat || k == KindDouble
}

// ParseKind parses a kind name as used in configuration files.
// Matching is case-insensitive; "" and "any" map to KindNull (untyped).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return KindNull, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "byte":
		return KindByte, nil
	case "short":
		return KindShort, nil
	case "integer", "int":
		return KindInteger, nil
	case "long":
		return KindLong, nil
	case "float":
		return KindFloat, nil
	case "double":
		return KindDouble, nil
	case "string":
		return KindString, nil
	default:
		return KindNull, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Value is an immutable tagged value. The zero Value is absent.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// Null returns the absent sentinel.
func Null() Value { return Value{} }

// Bool returns a BOOLEAN value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Byte returns a BYTE value.
func Byte(n int8) Value { return Value{kind: KindByte, i: int64(n)} }

// Short returns a SHORT value.
func Short(n int16) Value { return Value{kind: KindShort, i: int64(n)} }

// Int returns an INTEGER value.
func Int(n int32) Value { return Value{kind: KindInteger, i: int64(n)} }

// Long returns a LONG value.
func Long(n int64) Value { return Value{kind: KindLong, i: n} }

// Float returns a single-precision FLOAT value.
func Float(f float32) Value { return Value{kind: KindFloat, f: float64(f)} }

// Double returns a DOUBLE value.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String returns a STRING value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the absent sentinel.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the payload of a BOOLEAN value.
func (v Value) AsBool() bool {
	v.mustBe("AsBool", v.kind == KindBoolean)
	return v.b
}

// AsInt64 returns the payload of any integer-family value.
func (v Value) AsInt64() int64 {
	v.mustBe("AsInt64", v.kind.IsInteger())
	return v.i
}

// AsFloat32 returns the payload of a FLOAT value.
func (v Value) AsFloat32() float32 {
	v.mustBe("AsFloat32", v.kind == KindFloat)
	return float32(v.f)
}

// AsFloat64 returns the payload of a FLOAT or DOUBLE value.
func (v Value) AsFloat64() float64 {
	v.mustBe("AsFloat64", v.kind.IsFloating())
	return v.f
}

// AsString returns the payload of a STRING value.
func (v Value) AsString() string {
	v.mustBe("AsString", v.kind == KindString)
	return v.s
}

func (v Value) mustBe(accessor string, ok bool) {
	if !ok {
		panic(fmt.Sprintf("value: %s called on %s value", accessor, v.kind))
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// String formats the payload for logging. The absent value prints as "null".
func (v Value) String() string {
	switch {
	case v.kind == KindNull:
		return "null"
	case v.kind == KindBoolean:
		return strconv.FormatBool(v.b)
	case v.kind.IsInteger():
		return strconv.FormatInt(v.i, 10)
	case v.kind == KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case v.kind == KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// MarshalJSON encodes the payload as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.kind == KindNull:
		return []byte("null"), nil
	case v.kind == KindBoolean:
		return json.Marshal(v.b)
	case v.kind.IsInteger():
		return json.Marshal(v.i)
	case v.kind == KindFloat:
		return json.Marshal(float32(v.f))
	case v.kind == KindDouble:
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.s)
	}
}
