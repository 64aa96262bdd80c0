package switchcollection

import (
	"fmt"
	"log"
	"sync"
)

// DummySwitchCollection implements SwitchCollection without hardware. It
// is used by the API server's dummy driver and by tests.
type DummySwitchCollection struct {
	switches []Switch
	mutex    sync.RWMutex
}

// DummySwitch is a single virtual switch.
type DummySwitch struct {
	id    uint
	state bool
	mutex sync.RWMutex
}

// NewDummySwitchCollection creates a dummy collection with switchCount
// switches, all initially off.
func NewDummySwitchCollection(switchCount uint) *DummySwitchCollection {
	switches := make([]Switch, switchCount)
	for i := uint(0); i < switchCount; i++ {
		switches[i] = &DummySwitch{id: i}
	}

	return &DummySwitchCollection{switches: switches}
}

func (dsc *DummySwitchCollection) Init() error {
	log.Printf("initializing dummy switch collection with %d switches", len(dsc.switches))
	return nil
}

func (dsc *DummySwitchCollection) Close() error {
	return nil
}

func (dsc *DummySwitchCollection) CountSwitches() uint {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()
	return uint(len(dsc.switches))
}

func (dsc *DummySwitchCollection) ListSwitches() []Switch {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()
	return dsc.switches
}

func (dsc *DummySwitchCollection) GetSwitch(id uint) (Switch, error) {
	dsc.mutex.RLock()
	defer dsc.mutex.RUnlock()

	if id >= uint(len(dsc.switches)) {
		return nil, fmt.Errorf("invalid switch id %d", id)
	}
	return dsc.switches[id], nil
}

func (dsc *DummySwitchCollection) TurnOn() error {
	for _, sw := range dsc.ListSwitches() {
		if err := sw.TurnOn(); err != nil {
			return err
		}
	}
	return nil
}

func (dsc *DummySwitchCollection) TurnOff() error {
	for _, sw := range dsc.ListSwitches() {
		if err := sw.TurnOff(); err != nil {
			return err
		}
	}
	return nil
}

// GetState reports true when every switch is on.
func (dsc *DummySwitchCollection) GetState() (bool, error) {
	for _, sw := range dsc.ListSwitches() {
		state, err := sw.GetState()
		if err != nil {
			return false, err
		}
		if !state {
			return false, nil
		}
	}
	return true, nil
}

func (dsc *DummySwitchCollection) GetDetailedState() ([]bool, error) {
	switches := dsc.ListSwitches()
	states := make([]bool, len(switches))
	for i, sw := range switches {
		state, err := sw.GetState()
		if err != nil {
			return nil, err
		}
		states[i] = state
	}
	return states, nil
}

func (dsc *DummySwitchCollection) IsDisabled() bool {
	return false
}

// String implements the Stringer interface for DummySwitchCollection.
func (dsc *DummySwitchCollection) String() string {
	return fmt.Sprintf("dummy switch collection with %d switches", len(dsc.switches))
}

func (ds *DummySwitch) TurnOn() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.state = true
	return nil
}

func (ds *DummySwitch) TurnOff() error {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.state = false
	return nil
}

func (ds *DummySwitch) GetState() (bool, error) {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	return ds.state, nil
}

func (ds *DummySwitch) IsDisabled() bool {
	return false
}

// String implements the Stringer interface for DummySwitch.
func (ds *DummySwitch) String() string {
	return fmt.Sprintf("dummy:%d", ds.id)
}
