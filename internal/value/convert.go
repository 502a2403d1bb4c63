package value

import (
	"encoding/json"
	"fmt"
	"math"
)

// FromAny builds a Value of the requested kind from a decoded scalar.
//
// raw is typically the result of json.Unmarshal into an any (bool, float64,
// string, json.Number or nil) or a native scalar produced by a field driver
// (int8..uint64, float32). A nil raw always yields the absent value.
//
// When kind is KindNull the kind is inferred from raw's Go type.
func FromAny(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	if kind == KindNull {
		return infer(raw)
	}

	switch kind {
	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case KindString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
	case KindFloat:
		if f, ok := toFloat(raw); ok {
			return Float(float32(f)), nil
		}
	case KindDouble:
		if f, ok := toFloat(raw); ok {
			return Double(f), nil
		}
	case KindByte, KindShort, KindInteger, KindLong:
		if n, ok := toInt(raw); ok {
			return integerOf(kind, n)
		}
	}

	return Null(), fmt.Errorf("%w: %T cannot be %s", ErrIncompatible, raw, kind)
}

func infer(raw any) (Value, error) {
	switch x := raw.(type) {
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case int8:
		return Byte(x), nil
	case int16:
		return Short(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Long(x), nil
	case int:
		return Long(int64(x)), nil
	case uint8:
		return Short(int16(x)), nil
	case uint16:
		return Int(int32(x)), nil
	case uint32:
		return Long(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Null(), fmt.Errorf("%w: %d overflows LONG", ErrIncompatible, x)
		}
		return Long(int64(x)), nil
	case float32:
		return Float(x), nil
	case float64:
		return Double(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Long(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Null(), fmt.Errorf("%w: %q", ErrIncompatible, x.String())
		}
		return Double(f), nil
	default:
		return Null(), fmt.Errorf("%w: unsupported type %T", ErrIncompatible, raw)
	}
}

func integerOf(kind Kind, n int64) (Value, error) {
	switch kind {
	case KindByte:
		if n >= math.MinInt8 && n <= math.MaxInt8 {
			return Byte(int8(n)), nil
		}
	case KindShort:
		if n >= math.MinInt16 && n <= math.MaxInt16 {
			return Short(int16(n)), nil
		}
	case KindInteger:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return Int(int32(n)), nil
		}
	case KindLong:
		return Long(n), nil
	}
	return Null(), fmt.Errorf("%w: %d out of range for %s", ErrIncompatible, n, kind)
}

func toFloat(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	if n, ok := toInt(raw); ok {
		return float64(n), true
	}
	return 0, false
}

// toInt accepts native integers and integral floats.
func toInt(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return toInt(float64(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, true
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return toInt(f)
	}
	return 0, false
}
