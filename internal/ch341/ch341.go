// Package ch341 drives the parallel output lines of a CH341A USB
// converter chip. The chip's bulk protocol is not documented by the
// vendor; the command frames below were captured from the Windows
// driver with USBPcap.
package ch341

import (
	"fmt"
	"io"
)

// USB identifiers for a CH341A in EPP/MEM/I2C mode.
const (
	VENDOR_ID  = 0x1a86
	PRODUCT_ID = 0x5512
)

// CH341A bulk command opcodes.
const (
	OPCODE_SET_OUTPUT = 0xa1 // drive the D0..D7 output lines
	OPCODE_GET_INPUT  = 0xa0 // sample the D0..D7 input lines
)

// Offset of the pin-state byte inside a set-output frame, and the length
// of a get-input response. Only byte 0 of the response carries live pin
// state.
const (
	PIN_STATE_OFFSET = 5
	INPUT_FRAME_LEN  = 6
)

// PinState is a bitmask over the CH341A D0..D7 lines. On output only the
// bits a caller explicitly sets may be driven high; on input every bit
// reflects the sampled line state.
type PinState uint8

// Transport moves raw command frames to and from the converter chip. It
// has no knowledge of the frame contents.
type Transport interface {
	// Write sends one complete command frame to the output endpoint.
	Write(frame []byte) error
	// Read reads n bytes from the input endpoint.
	Read(n int) ([]byte, error)
}

// setOutputFrame builds the bulk command that drives the output lines to
// pins. The fixed bytes configure the chip's parallel mode; their exact
// meaning is unknown, but the frame must match the capture byte for byte.
func setOutputFrame(pins PinState) []byte {
	return []byte{
		OPCODE_SET_OUTPUT,
		0x6a, 0x1f, 0x00, 0x10,
		byte(pins),
		0x3f, 0x00, 0x00, 0x00, 0x00,
	}
}

// getInputFrame builds the single-byte command that requests a sample of
// the input lines.
func getInputFrame() []byte {
	return []byte{OPCODE_GET_INPUT}
}

// Port exposes the converter's pins as single-byte reads and writes over
// an owned transport.
type Port struct {
	t Transport
}

// NewPort returns a Port speaking through t.
func NewPort(t Transport) *Port {
	return &Port{t: t}
}

// WritePins drives the output lines to pins. The change is immediately
// visible to whatever is wired to the lines; no response is expected.
func (p *Port) WritePins(pins PinState) error {
	if err := p.t.Write(setOutputFrame(pins)); err != nil {
		return fmt.Errorf("%w: %v", ErrWritePins, err)
	}
	return nil
}

// ReadPins samples the input lines. Transport failures are surfaced
// immediately and never retried; the caller owns any recovery sequence.
func (p *Port) ReadPins() (PinState, error) {
	if err := p.t.Write(getInputFrame()); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReadPins, err)
	}

	resp, err := p.t.Read(INPUT_FRAME_LEN)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrReadPins, err)
	}
	if len(resp) < 1 {
		return 0, fmt.Errorf("%w: empty response", ErrReadPins)
	}

	return PinState(resp[0]), nil
}

// Close releases the underlying transport if it can be closed.
func (p *Port) Close() error {
	if c, ok := p.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// String implements the Stringer interface for Port.
func (p *Port) String() string {
	if s, ok := p.t.(fmt.Stringer); ok {
		return fmt.Sprintf("ch341:%s", s)
	}
	return "ch341"
}
