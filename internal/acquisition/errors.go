package acquisition

import "errors"

// Domain errors for the acquisition package.
var (
	// ErrTypeMismatch is returned when a write carries a value the channel's
	// declared kind cannot accept.
	ErrTypeMismatch = errors.New("acquisition: value type not accepted by channel")

	// ErrReadOnly is returned when writing to a channel without a sink.
	ErrReadOnly = errors.New("acquisition: channel is read-only")

	// ErrDuplicateChannel is returned when registering an ID twice.
	ErrDuplicateChannel = errors.New("acquisition: duplicate channel id")

	// ErrInvalidChannel is returned when a channel spec is incomplete.
	ErrInvalidChannel = errors.New("acquisition: invalid channel")
)
