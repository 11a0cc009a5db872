package history

import "errors"

var (
	// ErrInvalidRetention is returned when pruning with a non-positive age.
	ErrInvalidRetention = errors.New("history: retention must be positive")

	// ErrInvalidTimestamp is returned when a stored timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("history: invalid stored timestamp")
)
