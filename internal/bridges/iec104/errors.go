package iec104

import "errors"

// Domain errors for the IEC 104 bridge package.
var (
	// ErrUnsupportedConversion is returned by Convert when no rule maps the
	// value onto the IEC 104 numeric model.
	ErrUnsupportedConversion = errors.New("iec104: unsupported conversion")

	// ErrUnsupportedType is returned by the outbound sink for values that
	// have no IEC 104 type identification.
	ErrUnsupportedType = errors.New("iec104: no type identification for value")

	// ErrUnknownPoint is returned by the outbound sink when a channel has no
	// information object address configured.
	ErrUnknownPoint = errors.New("iec104: no information object address for channel")

	// ErrNotConnected is returned when the outbound publisher is offline.
	ErrNotConnected = errors.New("iec104: publisher not connected")
)
