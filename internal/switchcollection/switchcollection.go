// Package switchcollection defines the abstraction the API server and
// CLIs use to talk to a set of switchable outputs, whether that is a
// real relay board or a dummy used in tests.
package switchcollection

type (
	Switch interface {
		TurnOn() error
		TurnOff() error
		GetState() (bool, error)
		IsDisabled() bool
		String() string
	}

	SwitchCollection interface {
		Switch
		CountSwitches() uint
		ListSwitches() []Switch
		GetSwitch(id uint) (Switch, error)
		GetDetailedState() ([]bool, error)
		Init() error
		Close() error
	}
)
