// Package lrb drives the ABACOM USB-LRB relay board: eight relays behind
// an Allegro A6275 driver chip whose control lines hang off a CH341A USB
// converter. The A6275 is a serial-in shift register; relay status is
// clocked in bit by bit and copied to the driven outputs with a latch
// pulse. There is no direct way to read the driven outputs, only the
// serial register, so reading is destructive and has to restore what it
// shifted out (see GetRelays).
package lrb

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/larsks/usblrb/internal/ch341"
)

const NUMBER_OF_RELAYS = 8

// CH341A lines wired to the A6275.
const (
	LATCH ch341.PinState = 0x01 // to A6275 latch in
	CLK   ch341.PinState = 0x08 // to A6275 clock in
	DATA  ch341.PinState = 0x20 // to A6275 serial in
	PFT   ch341.PinState = 0x40 // from A6275: power-fail test
	READ  ch341.PinState = 0x80 // from A6275 serial out
)

// Bits travel through the shift register most significant first: bit 7 of
// the status byte is the first bit clocked in and the first bit sampled
// on read-back. Both paths derive their masks from shiftBitMask so they
// cannot disagree on the order.
func shiftBitMask(i int) uint8 {
	return 1 << (NUMBER_OF_RELAYS - 1 - i)
}

// PinPort is the converter port the board is wired to. ch341.Port
// implements it; tests substitute a simulated driver chip.
type PinPort interface {
	WritePins(ch341.PinState) error
	ReadPins() (ch341.PinState, error)
}

// Board is an exclusively owned USB-LRB relay board. All operations are
// strictly sequential: every pin write is a discrete electrical
// transition the shift register depends on, so nothing is batched,
// reordered, or retried. The mutex serializes callers within the
// process; exclusivity across processes comes from the USB interface
// claim.
type Board struct {
	port       PinPort
	mutex      sync.Mutex
	status     uint8
	offOnClose bool
}

// NewBoard returns a Board driving the relay board attached to port. If
// offOnClose is set, Close turns all relays off before releasing the
// port.
func NewBoard(port PinPort, offOnClose bool) *Board {
	return &Board{
		port:       port,
		offOnClose: offOnClose,
	}
}

// shiftOutBits clocks status into the A6275 serial register, most
// significant bit first. DATA is held steady while CLK pulses high and
// back low. LATCH is never raised here, so the driven relay outputs do
// not change; only the chip's internal register does.
func (b *Board) shiftOutBits(status uint8) error {
	if err := b.port.WritePins(0); err != nil {
		return fmt.Errorf("%w: %v", ErrShiftOut, err)
	}

	for i := 0; i < NUMBER_OF_RELAYS; i++ {
		var data ch341.PinState
		if status&shiftBitMask(i) != 0 {
			data = DATA
		}

		for _, pins := range []ch341.PinState{data, CLK | data, data} {
			if err := b.port.WritePins(pins); err != nil {
				return fmt.Errorf("%w: %v", ErrShiftOut, err)
			}
		}
	}

	if err := b.port.WritePins(0); err != nil {
		return fmt.Errorf("%w: %v", ErrShiftOut, err)
	}
	return nil
}

// setRelays writes status to the board. Caller holds b.mutex.
func (b *Board) setRelays(status uint8) error {
	if err := b.port.WritePins(0); err != nil {
		return fmt.Errorf("%w: %v", ErrSetRelays, err)
	}
	if err := b.shiftOutBits(status); err != nil {
		return fmt.Errorf("%w: %v", ErrSetRelays, err)
	}

	// The latch pulse copies the serial register to the driven outputs;
	// this is the only point at which the relays physically change.
	if err := b.port.WritePins(LATCH); err != nil {
		return fmt.Errorf("%w: %v", ErrSetRelays, err)
	}
	if err := b.port.WritePins(0); err != nil {
		return fmt.Errorf("%w: %v", ErrSetRelays, err)
	}

	b.status = status
	return nil
}

// SetRelays energizes the relays according to status: bit i set means
// relay i+1 on. The outputs change atomically at the latch pulse. On
// error the shift register may be left in an intermediate state; the
// only recovery is another SetRelays call.
func (b *Board) SetRelays(status uint8) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	log.Printf("set relays on %s to %#02x", b, status)
	return b.setRelays(status)
}

// getRelays reads the latched relay status. Caller holds b.mutex.
func (b *Board) getRelays() (uint8, error) {
	var result uint8
	var sample ch341.PinState

	if err := b.port.WritePins(0); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGetRelays, err)
	}

	for i := 0; i < NUMBER_OF_RELAYS; i++ {
		var err error
		sample, err = b.port.ReadPins()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrGetRelays, err)
		}
		if sample&READ != 0 {
			result |= shiftBitMask(i)
		}

		// clock the register forward to expose the next bit
		if err := b.port.WritePins(CLK); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrGetRelays, err)
		}
		if err := b.port.WritePins(0); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrGetRelays, err)
		}
	}

	// 255 is a legitimate status (all relays on) but it is also what a
	// dead board reads back. PFT disambiguates. The bit is taken from
	// the last sample of the loop, not from a dedicated read afterwards;
	// that matches the captured protocol, questionable as it may be.
	if result == 0xff && sample&PFT != 0 {
		return 0, ErrPowerFailure
	}

	// The read loop shifted the serial register eight positions, so
	// write the result back to leave the register equal to the latched
	// outputs. No latch pulse: the relays never move.
	if err := b.shiftOutBits(result); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGetRelays, err)
	}

	b.status = result
	return result, nil
}

// GetRelays returns the relay status currently latched on the board.
//
// SetRelays must have been called at least once since board power-up for
// the result to be trustworthy: the A6275 serial register and its latched
// output register power up in unrelated states, and only a write
// synchronizes them. What the status "means" before that first write is
// undefined by the hardware, and this package does not invent a value.
func (b *Board) GetRelays() (uint8, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.getRelays()
}

// SelfTest checks that the attached device actually behaves like a
// USB-LRB: it shifts the complement of the current status through the
// driver chip and reads it back. The probe never raises LATCH, so the
// relay outputs are untouched throughout. A read-back mismatch means the
// device speaks the CH341A protocol but is not wired like this board.
func (b *Board) SelfTest() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	status, err := b.getRelays()
	if err != nil {
		return err
	}

	probe := ^status
	if err := b.shiftOutBits(probe); err != nil {
		return err
	}

	got, err := b.getRelays()
	if err != nil {
		return err
	}

	// put the serial register back the way we found it
	if err := b.shiftOutBits(status); err != nil {
		return err
	}
	b.status = status

	if got != probe {
		return fmt.Errorf("%w: probe %#02x read back %#02x", ErrNotRelayBoard, probe, got)
	}

	log.Printf("self test passed on %s, status %#02x", b, status)
	return nil
}

// Status returns the last status commanded or read through this Board.
// It does not touch the hardware.
func (b *Board) Status() uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.status
}

// Close releases the underlying port, optionally de-energizing all
// relays first.
func (b *Board) Close() error {
	if b.offOnClose {
		if err := b.TurnOff(); err != nil {
			log.Printf("warning: failed to turn off relays during close: %v", err)
		}
	}
	if c, ok := b.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// String implements the Stringer interface for Board.
func (b *Board) String() string {
	if s, ok := b.port.(fmt.Stringer); ok {
		return fmt.Sprintf("usblrb:%s", s)
	}
	return "usblrb"
}

// ParseStatus validates a textual relay status. Values outside 0..255
// are a caller-side error and are rejected before any hardware I/O
// happens.
func ParseStatus(s string) (uint8, error) {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	if val < 0 || val > 255 {
		return 0, fmt.Errorf("%w: %d (must be 0-255)", ErrInvalidStatus, val)
	}
	return uint8(val), nil
}
