package ch341

import (
	"fmt"
	"log"

	"github.com/google/gousb"
)

// Bulk endpoints from the CH341A USB descriptor ("lsusb -v"): data out is
// 0x02, data in is 0x82, and the chip has a single interface 0.
const (
	endpointOut = 2
	endpointIn  = 2
)

// DeviceInfo describes one CH341A device found on the bus.
type DeviceInfo struct {
	Index   int
	Bus     int
	Address int
}

// String implements the Stringer interface for DeviceInfo.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("device %d at bus %d addr %d", d.Index, d.Bus, d.Address)
}

func isCH341A(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == gousb.ID(VENDOR_ID) && desc.Product == gousb.ID(PRODUCT_ID)
}

// ListDevices enumerates every CH341A in EPP/MEM/I2C mode on the bus.
// Indexes are zero-based and stable for the lifetime of the bus topology.
func ListDevices() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close() //nolint:errcheck

	devs, err := ctx.OpenDevices(isCH341A)
	for _, dev := range devs {
		dev.Close() //nolint:errcheck
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUSBOpen, err)
	}

	infos := make([]DeviceInfo, 0, len(devs))
	for i, dev := range devs {
		infos = append(infos, DeviceInfo{
			Index:   i,
			Bus:     dev.Desc.Bus,
			Address: dev.Desc.Address,
		})
	}
	return infos, nil
}

// USBTransport is a Transport backed by the CH341A bulk endpoints via
// libusb. It owns the device exclusively until Close is called.
type USBTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
	info DeviceInfo
}

// OpenDevice opens the index'th CH341A on the bus and claims its bulk
// endpoints. The kernel ch341 serial driver is detached automatically if
// it has the interface.
func OpenDevice(index int) (*USBTransport, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadDeviceIdx, index)
	}

	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(isCH341A)
	if err != nil {
		for _, dev := range devs {
			dev.Close() //nolint:errcheck
		}
		ctx.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: %v", ErrUSBOpen, err)
	}

	if len(devs) == 0 {
		ctx.Close() //nolint:errcheck
		return nil, ErrNoDevice
	}

	if index >= len(devs) {
		for _, dev := range devs {
			dev.Close() //nolint:errcheck
		}
		ctx.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: %d (found %d devices)", ErrBadDeviceIdx, index, len(devs))
	}

	dev := devs[index]
	for i, other := range devs {
		if i != index {
			other.Close() //nolint:errcheck
		}
	}

	closeAll := func() {
		dev.Close() //nolint:errcheck
		ctx.Close() //nolint:errcheck
	}

	if err := dev.SetAutoDetach(true); err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: %v", ErrUSBInterface, err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%w: %v", ErrUSBInterface, err)
	}

	out, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		done()
		closeAll()
		return nil, fmt.Errorf("%w 0x%02x: %v", ErrUSBEndpoint, endpointOut, err)
	}

	in, err := intf.InEndpoint(endpointIn)
	if err != nil {
		done()
		closeAll()
		return nil, fmt.Errorf("%w 0x%02x: %v", ErrUSBEndpoint, 0x80|endpointIn, err)
	}

	t := &USBTransport{
		ctx:  ctx,
		dev:  dev,
		done: done,
		out:  out,
		in:   in,
		info: DeviceInfo{Index: index, Bus: dev.Desc.Bus, Address: dev.Desc.Address},
	}
	log.Printf("opened %s", t.info)

	return t, nil
}

// Write sends one complete command frame to the bulk out endpoint.
func (u *USBTransport) Write(frame []byte) error {
	n, err := u.out.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortTransfer, n, len(frame))
	}
	return nil
}

// Read reads n bytes from the bulk in endpoint.
func (u *USBTransport) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := u.in.Read(buf)
	if err != nil {
		return nil, err
	}
	if got < n {
		return nil, fmt.Errorf("%w: read %d of %d bytes", ErrShortTransfer, got, n)
	}
	return buf[:got], nil
}

// Close releases the interface and the underlying libusb handles.
func (u *USBTransport) Close() error {
	u.done()
	if err := u.dev.Close(); err != nil {
		u.ctx.Close() //nolint:errcheck
		return err
	}
	return u.ctx.Close()
}

// Info returns the bus location of the opened device.
func (u *USBTransport) Info() DeviceInfo {
	return u.info
}

// String implements the Stringer interface for USBTransport.
func (u *USBTransport) String() string {
	return fmt.Sprintf("usb:%d.%d", u.info.Bus, u.info.Address)
}
