package ch341

import "errors"

// Pin operation errors
var (
	ErrWritePins = errors.New("failed to write output pins")
	ErrReadPins  = errors.New("failed to read input pins")
)

// USB transport errors
var (
	ErrNoDevice      = errors.New("no CH341A device found")
	ErrBadDeviceIdx  = errors.New("invalid device index")
	ErrUSBOpen       = errors.New("failed to open USB device")
	ErrUSBInterface  = errors.New("failed to claim USB interface")
	ErrUSBEndpoint   = errors.New("failed to open USB endpoint")
	ErrShortTransfer = errors.New("short USB transfer")
)
