package iec104

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"true", value.Bool(true), value.Int(1)},
		{"false", value.Bool(false), value.Int(0)},
		{"byte", value.Byte(-7), value.Byte(-7)},
		{"short", value.Short(1200), value.Short(1200)},
		{"integer", value.Int(42), value.Int(42)},
		{"long", value.Long(math.MaxInt64), value.Long(math.MaxInt64)},
		{"float", value.Float(49.95), value.Float(49.95)},
		{"double", value.Double(50.0123), value.Float(float32(50.0123))},
		{"string true", value.String("true"), value.Int(1)},
		{"string TRUE", value.String("TRUE"), value.Int(1)},
		{"string False", value.String("False"), value.Int(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "Convert(%v) = %v, want %v", tt.in, got, tt.want)
		})
	}
}

func TestConvert_Unsupported(t *testing.T) {
	for _, in := range []value.Value{
		value.Null(),
		value.String("open"),
		value.String(""),
		value.String("1"),
	} {
		_, err := Convert(in)
		assert.ErrorIs(t, err, ErrUnsupportedConversion, "input %v", in)
	}
}

func TestConvert_DoubleNarrowsToFloat(t *testing.T) {
	got, err := Convert(value.Double(0.1))
	require.NoError(t, err)

	assert.Equal(t, value.KindFloat, got.Kind())
	assert.Equal(t, float32(0.1), got.AsFloat32())
}

func TestConvert_DoesNotMutateInput(t *testing.T) {
	in := value.Bool(true)
	_, err := Convert(in)
	require.NoError(t, err)

	assert.Equal(t, value.KindBoolean, in.Kind())
	assert.True(t, in.AsBool())
}
