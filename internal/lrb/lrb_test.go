package lrb

import (
	"errors"
	"testing"

	"github.com/larsks/usblrb/internal/ch341"
)

// fakeA6275 simulates the relay driver chip as seen through the
// converter port: a serial shift register, a latched output register,
// and a serial-out line presenting the register's top bit. Bits shift on
// the rising clock edge, taking the DATA line into the low end.
type fakeA6275 struct {
	shift       uint8
	latched     uint8
	pins        ch341.PinState
	powerFail   bool
	writeCount  int
	readCount   int
	latchPulses int
}

func (f *fakeA6275) WritePins(p ch341.PinState) error {
	f.writeCount++
	prev := f.pins
	f.pins = p

	if prev&CLK == 0 && p&CLK != 0 {
		var in uint8
		if p&DATA != 0 {
			in = 1
		}
		f.shift = f.shift<<1 | in
	}

	if prev&LATCH == 0 && p&LATCH != 0 {
		f.latched = f.shift
		f.latchPulses++
	}

	return nil
}

func (f *fakeA6275) ReadPins() (ch341.PinState, error) {
	f.readCount++

	var p ch341.PinState
	if f.shift&0x80 != 0 {
		p |= READ
	}
	if f.powerFail {
		p |= PFT
	}
	return p, nil
}

// recordingPort records every pin state written through it and reads
// back all lines low.
type recordingPort struct {
	writes []ch341.PinState
}

func (r *recordingPort) WritePins(p ch341.PinState) error {
	r.writes = append(r.writes, p)
	return nil
}

func (r *recordingPort) ReadPins() (ch341.PinState, error) {
	return 0, nil
}

func TestShiftBitMask(t *testing.T) {
	// MSB first: the first bit on the wire is bit 7 of the status byte.
	expect := []uint8{0x80, 0x40, 0x20, 0x10, 0x08, 0x04, 0x02, 0x01}
	for i, want := range expect {
		if got := shiftBitMask(i); got != want {
			t.Errorf("shiftBitMask(%d) = %#02x, want %#02x", i, got, want)
		}
	}
}

func TestSetRelaysLatchesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status uint8
	}{
		{"all off", 0x00},
		{"all on", 0xff},
		{"alternating", 0xaa},
		{"single relay 1", 0x01},
		{"single relay 8", 0x80},
		{"captured example", 0x29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := &fakeA6275{}
			board := NewBoard(chip, false)

			if err := board.SetRelays(tt.status); err != nil {
				t.Fatalf("SetRelays(%#02x) unexpected error: %v", tt.status, err)
			}

			if chip.latched != tt.status {
				t.Errorf("latched outputs = %#02x, want %#02x", chip.latched, tt.status)
			}
			if chip.shift != tt.status {
				t.Errorf("serial register = %#02x, want %#02x", chip.shift, tt.status)
			}
			if chip.latchPulses != 1 {
				t.Errorf("latch pulses = %d, want 1", chip.latchPulses)
			}
			if chip.pins != 0 {
				t.Errorf("lines after SetRelays = %#02x, want all low", chip.pins)
			}
		})
	}
}

// The round-trip law: whatever is set can be read back exactly, and the
// read leaves the chip's serial register equal to the latched outputs.
func TestRelayStatusRoundTrip(t *testing.T) {
	for status := 0; status < 256; status++ {
		chip := &fakeA6275{}
		board := NewBoard(chip, false)

		if err := board.SetRelays(uint8(status)); err != nil {
			t.Fatalf("SetRelays(%#02x) unexpected error: %v", status, err)
		}

		got, err := board.GetRelays()
		if err != nil {
			t.Fatalf("GetRelays() after SetRelays(%#02x) unexpected error: %v", status, err)
		}
		if got != uint8(status) {
			t.Fatalf("GetRelays() = %#02x, want %#02x", got, status)
		}

		if chip.shift != uint8(status) {
			t.Fatalf("serial register after GetRelays() = %#02x, want %#02x (not restored)",
				chip.shift, status)
		}
		if chip.latched != uint8(status) {
			t.Fatalf("latched outputs after GetRelays() = %#02x, want %#02x", chip.latched, status)
		}
	}
}

func TestShiftOutBitOrder(t *testing.T) {
	port := &recordingPort{}
	board := NewBoard(port, false)

	if err := board.shiftOutBits(0x80); err != nil {
		t.Fatalf("shiftOutBits(0x80) unexpected error: %v", err)
	}

	var clocks, dataClocks int
	var prev ch341.PinState
	for _, w := range port.writes {
		if prev&CLK == 0 && w&CLK != 0 {
			clocks++
			if w&DATA != 0 {
				dataClocks++
				if clocks != 1 {
					t.Errorf("DATA high on clock %d, want clock 1 only", clocks)
				}
			}
		}
		if w&LATCH != 0 {
			t.Errorf("shiftOutBits raised LATCH (pins %#02x)", w)
		}
		prev = w
	}

	if clocks != 8 {
		t.Errorf("shiftOutBits produced %d clock pulses, want 8", clocks)
	}
	if dataClocks != 1 {
		t.Errorf("DATA was high on %d clock pulses, want 1", dataClocks)
	}
	if last := port.writes[len(port.writes)-1]; last != 0 {
		t.Errorf("final pin state = %#02x, want all lines low", last)
	}
}

// Reading must not disturb the driven outputs: repeated reads return the
// same status and never pulse the latch.
func TestGetRelaysIdempotent(t *testing.T) {
	chip := &fakeA6275{}
	board := NewBoard(chip, false)

	if err := board.SetRelays(0xa5); err != nil {
		t.Fatalf("SetRelays() unexpected error: %v", err)
	}
	latches := chip.latchPulses

	first, err := board.GetRelays()
	if err != nil {
		t.Fatalf("GetRelays() unexpected error: %v", err)
	}
	second, err := board.GetRelays()
	if err != nil {
		t.Fatalf("GetRelays() unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("consecutive GetRelays() = %#02x, %#02x; want equal", first, second)
	}
	if chip.latchPulses != latches {
		t.Errorf("GetRelays() pulsed the latch (%d -> %d pulses)", latches, chip.latchPulses)
	}
	if chip.latched != 0xa5 {
		t.Errorf("latched outputs changed to %#02x during read", chip.latched)
	}
}

func TestGetRelaysPowerFailure(t *testing.T) {
	t.Run("all-ones with PFT asserted is a power failure", func(t *testing.T) {
		chip := &fakeA6275{shift: 0xff, latched: 0xff, powerFail: true}
		board := NewBoard(chip, false)

		_, err := board.GetRelays()
		if !errors.Is(err, ErrPowerFailure) {
			t.Errorf("GetRelays() error = %v, want %v", err, ErrPowerFailure)
		}
	})

	t.Run("all-ones without PFT is a valid status", func(t *testing.T) {
		chip := &fakeA6275{shift: 0xff, latched: 0xff}
		board := NewBoard(chip, false)

		got, err := board.GetRelays()
		if err != nil {
			t.Fatalf("GetRelays() unexpected error: %v", err)
		}
		if got != 0xff {
			t.Errorf("GetRelays() = %#02x, want 0xff", got)
		}
	})

	t.Run("PFT is ignored unless the status reads all ones", func(t *testing.T) {
		chip := &fakeA6275{shift: 0x7f, latched: 0x7f, powerFail: true}
		board := NewBoard(chip, false)

		got, err := board.GetRelays()
		if err != nil {
			t.Fatalf("GetRelays() unexpected error: %v", err)
		}
		if got != 0x7f {
			t.Errorf("GetRelays() = %#02x, want 0x7f", got)
		}
	})
}

// deadPort accepts writes but never echoes anything back, like a CH341A
// that is not wired to an A6275.
type deadPort struct{}

func (deadPort) WritePins(ch341.PinState) error    { return nil }
func (deadPort) ReadPins() (ch341.PinState, error) { return 0, nil }

func TestSelfTest(t *testing.T) {
	t.Run("complement round-trips on a real board", func(t *testing.T) {
		chip := &fakeA6275{}
		board := NewBoard(chip, false)

		if err := board.SetRelays(0x29); err != nil {
			t.Fatalf("SetRelays() unexpected error: %v", err)
		}

		if err := board.SelfTest(); err != nil {
			t.Fatalf("SelfTest() unexpected error: %v", err)
		}

		// the probe must not have disturbed anything
		if chip.latched != 0x29 {
			t.Errorf("latched outputs after SelfTest() = %#02x, want 0x29", chip.latched)
		}
		if chip.shift != 0x29 {
			t.Errorf("serial register after SelfTest() = %#02x, want 0x29", chip.shift)
		}
		if board.Status() != 0x29 {
			t.Errorf("Status() after SelfTest() = %#02x, want 0x29", board.Status())
		}
	})

	t.Run("device that does not echo is not a relay board", func(t *testing.T) {
		board := NewBoard(deadPort{}, false)

		err := board.SelfTest()
		if !errors.Is(err, ErrNotRelayBoard) {
			t.Errorf("SelfTest() error = %v, want %v", err, ErrNotRelayBoard)
		}
	})
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint8
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"max", "255", 255, false},
		{"middle", "123", 123, false},
		{"whitespace", " 42 ", 42, false},
		{"too large", "256", 0, true},
		{"negative", "-1", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Errorf("ParseStatus(%q) error = %v, want %v", tt.input, err, ErrInvalidStatus)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// Out-of-range status values are rejected before anything reaches the
// transport.
func TestValidationPrecedesIO(t *testing.T) {
	for _, input := range []string{"256", "-1"} {
		port := &recordingPort{}
		board := NewBoard(port, false)

		status, err := ParseStatus(input)
		if err == nil {
			if err := board.SetRelays(status); err != nil {
				t.Fatalf("SetRelays() unexpected error: %v", err)
			}
		}

		if len(port.writes) != 0 {
			t.Errorf("input %q caused %d transport writes, want 0", input, len(port.writes))
		}
	}
}

func TestTransportErrorsSurface(t *testing.T) {
	failing := errors.New("device unplugged")

	t.Run("SetRelays", func(t *testing.T) {
		board := NewBoard(&failingPort{err: failing}, false)
		err := board.SetRelays(0x01)
		if !errors.Is(err, ErrSetRelays) {
			t.Errorf("SetRelays() error = %v, want %v", err, ErrSetRelays)
		}
	})

	t.Run("GetRelays", func(t *testing.T) {
		board := NewBoard(&failingPort{err: failing}, false)
		_, err := board.GetRelays()
		if !errors.Is(err, ErrGetRelays) {
			t.Errorf("GetRelays() error = %v, want %v", err, ErrGetRelays)
		}
	})
}

type failingPort struct {
	err error
}

func (f *failingPort) WritePins(ch341.PinState) error    { return f.err }
func (f *failingPort) ReadPins() (ch341.PinState, error) { return 0, f.err }
