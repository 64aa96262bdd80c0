package lrb

import (
	"errors"
	"testing"
)

func TestSetBit(t *testing.T) {
	tests := []struct {
		name   string
		value  uint8
		pin    uint8
		state  bool
		expect uint8
	}{
		{"set bit 0 on empty", 0x00, 0, true, 0x01},
		{"set bit 7 on empty", 0x00, 7, true, 0x80},
		{"clear bit 0 on full", 0xff, 0, false, 0xfe},
		{"clear bit 7 on full", 0xff, 7, false, 0x7f},
		{"set already set bit", 0x01, 0, true, 0x01},
		{"clear already clear bit", 0xfe, 0, false, 0xfe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := setBit(tt.value, tt.pin, tt.state); got != tt.expect {
				t.Errorf("setBit(%#02x, %d, %t) = %#02x, want %#02x",
					tt.value, tt.pin, tt.state, got, tt.expect)
			}
		})
	}
}

func TestSetRelay(t *testing.T) {
	chip := &fakeA6275{}
	board := NewBoard(chip, false)

	if err := board.SetRelays(0x00); err != nil {
		t.Fatalf("SetRelays() unexpected error: %v", err)
	}

	// relay 0 is status bit 0
	if err := board.SetRelay(0, true); err != nil {
		t.Fatalf("SetRelay(0, true) unexpected error: %v", err)
	}
	if chip.latched != 0x01 {
		t.Errorf("latched = %#02x, want 0x01", chip.latched)
	}

	if err := board.SetRelay(7, true); err != nil {
		t.Fatalf("SetRelay(7, true) unexpected error: %v", err)
	}
	if chip.latched != 0x81 {
		t.Errorf("latched = %#02x, want 0x81", chip.latched)
	}

	if err := board.SetRelay(0, false); err != nil {
		t.Fatalf("SetRelay(0, false) unexpected error: %v", err)
	}
	if chip.latched != 0x80 {
		t.Errorf("latched = %#02x, want 0x80", chip.latched)
	}

	if err := board.SetRelay(8, true); !errors.Is(err, ErrInvalidRelay) {
		t.Errorf("SetRelay(8, true) error = %v, want %v", err, ErrInvalidRelay)
	}
}

func TestSwitchCollection(t *testing.T) {
	chip := &fakeA6275{}
	board := NewBoard(chip, false)

	t.Run("CountSwitches", func(t *testing.T) {
		if count := board.CountSwitches(); count != NUMBER_OF_RELAYS {
			t.Errorf("CountSwitches() = %d, want %d", count, NUMBER_OF_RELAYS)
		}
	})

	t.Run("GetSwitch bounds", func(t *testing.T) {
		for i := uint(0); i < NUMBER_OF_RELAYS; i++ {
			if _, err := board.GetSwitch(i); err != nil {
				t.Errorf("GetSwitch(%d) unexpected error: %v", i, err)
			}
		}
		if _, err := board.GetSwitch(8); !errors.Is(err, ErrInvalidRelay) {
			t.Errorf("GetSwitch(8) error = %v, want %v", err, ErrInvalidRelay)
		}
	})

	t.Run("ListSwitches", func(t *testing.T) {
		switches := board.ListSwitches()
		if len(switches) != NUMBER_OF_RELAYS {
			t.Errorf("ListSwitches() returned %d switches, want %d",
				len(switches), NUMBER_OF_RELAYS)
		}
	})

	t.Run("individual relays drive their status bit", func(t *testing.T) {
		if err := board.TurnOff(); err != nil {
			t.Fatalf("TurnOff() unexpected error: %v", err)
		}

		sw3, err := board.GetSwitch(3)
		if err != nil {
			t.Fatalf("GetSwitch(3) unexpected error: %v", err)
		}

		if err := sw3.TurnOn(); err != nil {
			t.Fatalf("TurnOn() unexpected error: %v", err)
		}
		if chip.latched != 0x08 {
			t.Errorf("latched = %#02x, want 0x08", chip.latched)
		}

		state, err := sw3.GetState()
		if err != nil {
			t.Fatalf("GetState() unexpected error: %v", err)
		}
		if !state {
			t.Error("GetState() = false after TurnOn()")
		}

		if err := sw3.TurnOff(); err != nil {
			t.Fatalf("TurnOff() unexpected error: %v", err)
		}
		if chip.latched != 0x00 {
			t.Errorf("latched = %#02x, want 0x00", chip.latched)
		}
	})

	t.Run("GetDetailedState", func(t *testing.T) {
		if err := board.SetRelays(0x89); err != nil { // relays 1, 4, 8
			t.Fatalf("SetRelays() unexpected error: %v", err)
		}

		states, err := board.GetDetailedState()
		if err != nil {
			t.Fatalf("GetDetailedState() unexpected error: %v", err)
		}

		expect := []bool{true, false, false, true, false, false, false, true}
		for i, want := range expect {
			if states[i] != want {
				t.Errorf("GetDetailedState()[%d] = %t, want %t", i, states[i], want)
			}
		}
	})

	t.Run("TurnOn and GetState", func(t *testing.T) {
		if err := board.TurnOn(); err != nil {
			t.Fatalf("TurnOn() unexpected error: %v", err)
		}
		state, err := board.GetState()
		if err != nil {
			t.Fatalf("GetState() unexpected error: %v", err)
		}
		if !state {
			t.Error("GetState() = false after TurnOn()")
		}
	})
}
