package lrb

import (
	"fmt"
	"log"

	"github.com/larsks/usblrb/internal/switchcollection"
)

// Helper functions for bit operations and validation
func validateRelay(pin uint8) error {
	if pin >= NUMBER_OF_RELAYS {
		return fmt.Errorf("%w: %d (must be 0-7)", ErrInvalidRelay, pin)
	}
	return nil
}

func setBit(value uint8, pin uint8, state bool) uint8 {
	if state {
		return value | (1 << pin)
	}
	return value &^ (1 << pin)
}

func getBit(value uint8, pin uint8) bool {
	return (value>>pin)&1 != 0
}

// SetRelay changes a single relay, leaving the others as last commanded.
// The full status byte is reshifted and latched; from the outside the
// board still changes exactly once.
func (b *Board) SetRelay(pin uint8, on bool) error {
	if err := validateRelay(pin); err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.setRelays(setBit(b.status, pin, on))
}

// SwitchCollection interface implementation

// Init synchronizes the in-memory status with whatever the board has
// latched. If the board has never been written since power-up the result
// is undefined (see GetRelays); a server that needs a known state should
// follow Init with an explicit SetRelays.
func (b *Board) Init() error {
	log.Printf("initializing %s", b)

	status, err := b.GetRelays()
	if err != nil {
		return err
	}

	log.Printf("%s reports status %#02x", b, status)
	return nil
}

func (b *Board) CountSwitches() uint {
	return NUMBER_OF_RELAYS
}

func (b *Board) ListSwitches() []switchcollection.Switch {
	var switches []switchcollection.Switch
	for i := range NUMBER_OF_RELAYS {
		if sw, err := b.GetSwitch(uint(i)); err == nil {
			switches = append(switches, sw)
		}
	}

	return switches
}

func (b *Board) GetSwitch(id uint) (switchcollection.Switch, error) {
	if id >= NUMBER_OF_RELAYS {
		return nil, fmt.Errorf("%w: %d (must be 0-7)", ErrInvalidRelay, id)
	}
	return &Relay{
		board: b,
		pin:   uint8(id),
	}, nil
}

func (b *Board) TurnOn() error {
	log.Printf("turn on all relays on %s", b)
	return b.SetRelays(0xff)
}

func (b *Board) TurnOff() error {
	log.Printf("turn off all relays on %s", b)
	return b.SetRelays(0x00)
}

func (b *Board) GetState() (bool, error) {
	status, err := b.GetRelays()
	if err != nil {
		return false, err
	}
	return status == 0xff, nil
}

func (b *Board) GetDetailedState() ([]bool, error) {
	status, err := b.GetRelays()
	if err != nil {
		return nil, err
	}

	states := make([]bool, NUMBER_OF_RELAYS)
	for i := range NUMBER_OF_RELAYS {
		states[i] = getBit(status, uint8(i))
	}
	return states, nil
}

func (b *Board) IsDisabled() bool {
	return false
}
