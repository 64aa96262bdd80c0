package lrb

import "errors"

// Protocol errors
var (
	ErrShiftOut  = errors.New("failed to shift out relay bits")
	ErrSetRelays = errors.New("failed to set relay status")
	ErrGetRelays = errors.New("failed to get relay status")
)

// Board condition errors
var (
	ErrPowerFailure  = errors.New("relay board power failure")
	ErrNotRelayBoard = errors.New("device does not respond like a USB-LRB")
)

// Validation errors
var (
	ErrInvalidStatus = errors.New("invalid relay status")
	ErrInvalidRelay  = errors.New("invalid relay number")
)

// Relay operation errors
var (
	ErrRelayTurnOn  = errors.New("failed to turn on relay")
	ErrRelayTurnOff = errors.New("failed to turn off relay")
	ErrRelayState   = errors.New("failed to get relay state")
)
