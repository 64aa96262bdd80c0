package lrb

import (
	"fmt"
	"log"
)

// Relay is a single relay output on a Board, addressed by its zero-based
// pin: pin 0 is REL1 on the silkscreen.
type Relay struct {
	board *Board
	pin   uint8
}

func (r *Relay) TurnOn() error {
	log.Printf("turn on relay %s", r)
	if err := r.board.SetRelay(r.pin, true); err != nil {
		return fmt.Errorf("%w %d: %v", ErrRelayTurnOn, r.pin, err)
	}
	return nil
}

func (r *Relay) TurnOff() error {
	log.Printf("turn off relay %s", r)
	if err := r.board.SetRelay(r.pin, false); err != nil {
		return fmt.Errorf("%w %d: %v", ErrRelayTurnOff, r.pin, err)
	}
	return nil
}

func (r *Relay) GetState() (bool, error) {
	status, err := r.board.GetRelays()
	if err != nil {
		return false, fmt.Errorf("%w for relay %d: %v", ErrRelayState, r.pin, err)
	}

	return getBit(status, r.pin), nil
}

func (r *Relay) IsDisabled() bool {
	return false
}

// String implements the Stringer interface for Relay.
func (r *Relay) String() string {
	return fmt.Sprintf("%s:%d", r.board, r.pin)
}
