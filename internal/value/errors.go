package value

import "errors"

// Domain errors for the value package.
var (
	// ErrUnknownKind is returned when a kind name cannot be parsed.
	ErrUnknownKind = errors.New("value: unknown kind")

	// ErrIncompatible is returned when a raw payload cannot be represented
	// as the requested kind.
	ErrIncompatible = errors.New("value: incompatible payload")
)
