package iec104

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// Convert maps v onto a value IEC 104 can carry.
//
// It is pure and never mutates v. Values with no applicable rule (absent,
// non-boolean strings) fail with ErrUnsupportedConversion.
func Convert(v value.Value) (value.Value, error) {
	switch v.Kind() {
	case value.KindBoolean:
		if v.AsBool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil

	case value.KindByte, value.KindShort, value.KindInteger, value.KindLong:
		return v, nil

	case value.KindFloat, value.KindDouble:
		return value.Float(float32(v.AsFloat64())), nil

	case value.KindString:
		s := v.AsString()
		switch {
		case strings.EqualFold(s, "true"):
			return value.Int(1), nil
		case strings.EqualFold(s, "false"):
			return value.Int(0), nil
		}
		return value.Null(), fmt.Errorf("%w: STRING %q is not numeric", ErrUnsupportedConversion, s)

	default:
		return value.Null(), fmt.Errorf("%w: %s", ErrUnsupportedConversion, v.Kind())
	}
}
