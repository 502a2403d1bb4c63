package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_Typed(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		raw  any
		want Value
	}{
		{"nil is null", KindInteger, nil, Null()},
		{"json bool", KindBoolean, true, Bool(true)},
		{"json number to integer", KindInteger, float64(12), Int(12)},
		{"json number to byte", KindByte, float64(-5), Byte(-5)},
		{"json number to short", KindShort, float64(300), Short(300)},
		{"json number to long", KindLong, float64(1 << 40), Long(1 << 40)},
		{"json number to double", KindDouble, 49.98, Double(49.98)},
		{"json number to float", KindFloat, 0.25, Float(0.25)},
		{"integer to double", KindDouble, int32(3), Double(3)},
		{"string", KindString, "tripped", String("tripped")},
		{"json.Number to long", KindLong, json.Number("99"), Long(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.kind, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Incompatible(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		raw  any
	}{
		{"fraction to integer", KindInteger, 1.5},
		{"overflow byte", KindByte, float64(200)},
		{"string to boolean", KindBoolean, "true"},
		{"bool to double", KindDouble, true},
		{"number to string", KindString, float64(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAny(tt.kind, tt.raw)
			assert.ErrorIs(t, err, ErrIncompatible)
		})
	}
}

func TestFromAny_Infer(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Value
	}{
		{"bool", false, Bool(false)},
		{"string", "ok", String("ok")},
		{"float64", 50.0, Double(50)},
		{"float32", float32(2.5), Float(2.5)},
		{"int8", int8(1), Byte(1)},
		{"int16", int16(2), Short(2)},
		{"int32", int32(3), Int(3)},
		{"int64", int64(4), Long(4)},
		{"uint16", uint16(65535), Int(65535)},
		{"json.Number int", json.Number("10"), Long(10)},
		{"json.Number float", json.Number("1.25"), Double(1.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(KindNull, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FromAny(KindNull, []int{1})
	assert.ErrorIs(t, err, ErrIncompatible)
}
