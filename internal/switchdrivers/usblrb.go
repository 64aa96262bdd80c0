package switchdrivers

import (
	"fmt"

	"github.com/larsks/usblrb/internal/ch341"
	"github.com/larsks/usblrb/internal/lrb"
	"github.com/larsks/usblrb/internal/switchcollection"
)

// USBLRBConfig represents USB-LRB driver configuration.
type USBLRBConfig struct {
	Device     int  `mapstructure:"device"`
	OffOnClose bool `mapstructure:"off-on-close"`
}

// USBLRBFactory implements Factory for USB-LRB relay boards.
type USBLRBFactory struct{}

// CreateDriver opens the configured CH341A device and wraps it in a
// relay board collection.
func (f *USBLRBFactory) CreateDriver(config map[string]interface{}) (switchcollection.SwitchCollection, error) {
	cfg, err := f.parseConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usblrb config: %w", err)
	}

	transport, err := ch341.OpenDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open USB-LRB device %d: %w", cfg.Device, err)
	}

	return lrb.NewBoard(ch341.NewPort(transport), cfg.OffOnClose), nil
}

// ValidateConfig validates USB-LRB configuration.
func (f *USBLRBFactory) ValidateConfig(config map[string]interface{}) error {
	_, err := f.parseConfig(config)
	return err
}

func (f *USBLRBFactory) parseConfig(config map[string]interface{}) (*USBLRBConfig, error) {
	cfg := &USBLRBConfig{}

	if device, ok := config["device"].(int); ok {
		if device < 0 {
			return nil, fmt.Errorf("device index must be non-negative")
		}
		cfg.Device = device
	}

	if offOnClose, ok := config["off-on-close"].(bool); ok {
		cfg.OffOnClose = offOnClose
	}

	return cfg, nil
}

func init() {
	Register("usblrb", &USBLRBFactory{})
}
