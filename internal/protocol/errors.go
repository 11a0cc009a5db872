package protocol

import "errors"

// Domain errors for payload decoding.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownVerb is returned when a command payload is not ON, OFF or AUTO.
	ErrUnknownVerb = errors.New("protocol: unknown command verb")

	// ErrUnknownDevice is returned for a device name other than pump or lamp.
	ErrUnknownDevice = errors.New("protocol: unknown device")

	// ErrInvalidStatus is returned when a status payload does not carry a
	// valid mode and state.
	ErrInvalidStatus = errors.New("protocol: invalid device status")

	// ErrInvalidReading is returned when a sensor payload is missing its
	// value field or the value is not a finite number.
	ErrInvalidReading = errors.New("protocol: invalid sensor reading")

	// ErrUnknownFeedState is returned when a feeder payload is neither
	// "pressed" nor "released".
	ErrUnknownFeedState = errors.New("protocol: unknown feed state")
)
