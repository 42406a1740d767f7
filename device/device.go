// Package device implements the link-layer device model: a Device wraps a
// driver (open/close/send) behind a uniform lifecycle and flag set, and a
// Registry owns an ordered collection of devices dispatched by IRQ number.
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tavonet/netstack/ethernet"
)

// Type identifies the kind of link a Device implements.
type Type uint8

const (
	TypeNull Type = iota
	TypeLoopback
	TypeEthernet
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeLoopback:
		return "loopback"
	case TypeEthernet:
		return "ethernet"
	default:
		return "unknown"
	}
}

// Flag bits mirror the classic BSD/Linux ifnet flag set this stack reuses
// for UP/LOOPBACK/BROADCAST/P2P/NEED_ARP bookkeeping.
type Flag uint16

const (
	FlagUp Flag = 1 << iota
	FlagLoopback
	FlagBroadcast
	FlagP2P
	FlagNeedARP
)

// Driver is the operation vtable a link implementation supplies to Device.
// Open/Close manage the underlying fd or in-memory resource; Send writes
// one outbound frame.
type Driver interface {
	Open(d *Device) error
	Close(d *Device) error
	Send(d *Device, dst [6]byte, ethertype ethernet.Type, payload []byte) error
	// Service is invoked when this device's IRQ fires, servicing whatever
	// I/O the driver needs (a TAP/raw-socket read, a loopback queue pop)
	// and delivering any decoded frame via the device's onRecv callback.
	Service(d *Device) error
}

// ReceiveFunc is invoked by a driver (or its IRQ handler) for every inbound
// frame, carrying the owning device so a dispatcher can look up its
// attached interfaces.
type ReceiveFunc func(dev *Device, ethertype ethernet.Type, payload []byte)

// Device is one network link: a TAP interface, an in-memory loopback, or the
// null sink. Devices are held behind a mutex since they may be reached both
// from the signal thread and, in test/bench harnesses, a second writer
// thread.
type Device struct {
	mu sync.Mutex

	Index int
	Name  string
	Link  Type
	MTU   int
	flags Flag
	hw    [6]byte
	IRQ   int

	driver  Driver
	onRecv  ReceiveFunc
}

// New returns a Device named name, of the given link type, driven by drv.
func New(index int, name string, link Type, mtu int, hw [6]byte, drv Driver, onRecv ReceiveFunc) *Device {
	d := &Device{
		Index:  index,
		Name:   name,
		Link:   link,
		MTU:    mtu,
		hw:     hw,
		driver: drv,
		onRecv: onRecv,
	}
	if link == TypeLoopback {
		d.flags |= FlagLoopback
	}
	if link == TypeEthernet {
		d.flags |= FlagBroadcast | FlagNeedARP
	}
	return d
}

var (
	ErrDeviceAlreadyUp   = errors.New("device: already up")
	ErrDeviceAlreadyDown = errors.New("device: already down")
	ErrPacketTooLong     = errors.New("device: packet exceeds MTU")
	ErrDeviceDown        = errors.New("device: not open")
)

// IsUp reports whether the device has been opened and not yet closed.
func (d *Device) IsUp() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags&FlagUp != 0
}

// RequiresARP reports whether this device's link needs ARP resolution of
// next-hop hardware addresses before sending (true for Ethernet, false for
// loopback and null).
func (d *Device) RequiresARP() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags&FlagNeedARP != 0
}

// HardwareAddr returns the device's link-layer address. Zero for devices
// that don't need one (loopback, null).
func (d *Device) HardwareAddr() [6]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hw
}

// Open brings the device up, invoking its driver's Open.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.flags&FlagUp != 0 {
		return fmt.Errorf("%w: %s", ErrDeviceAlreadyUp, d.Name)
	}
	if err := d.driver.Open(d); err != nil {
		return err
	}
	d.flags |= FlagUp
	return nil
}

// Close brings the device down, invoking its driver's Close.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.flags&FlagUp == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceAlreadyDown, d.Name)
	}
	if err := d.driver.Close(d); err != nil {
		return err
	}
	d.flags &^= FlagUp
	return nil
}

// Send transmits payload (a fully-built upper-layer packet) to dst with the
// given EtherType, enforcing the UP and MTU invariants before handing off to
// the driver.
func (d *Device) Send(dst [6]byte, ethertype ethernet.Type, payload []byte) error {
	d.mu.Lock()
	up := d.flags&FlagUp != 0
	mtu := d.MTU
	d.mu.Unlock()
	if !up {
		return fmt.Errorf("%w: %s", ErrDeviceDown, d.Name)
	}
	if len(payload) > mtu {
		return fmt.Errorf("%w: %s len=%d mtu=%d", ErrPacketTooLong, d.Name, len(payload), mtu)
	}
	return d.driver.Send(d, dst, ethertype, payload)
}

// deliver is called by a driver's IRQ-time read path to hand a decoded
// frame up to the protocol dispatcher registered at construction time.
func (d *Device) deliver(ethertype ethernet.Type, payload []byte) {
	if d.onRecv != nil {
		d.onRecv(d, ethertype, payload)
	}
}

// ServiceIRQ asks the device's driver to service the I/O that woke its
// IRQ, invoked by the registry's HandleIRQ dispatch on signal delivery.
func (d *Device) ServiceIRQ() error {
	return d.driver.Service(d)
}

// WrapDriver replaces d's driver with fn(current driver), letting a
// decorator such as LoggingDriver sit in front of the real one. Callers
// must do this before Open.
func (d *Device) WrapDriver(fn func(Driver) Driver) {
	d.driver = fn(d.driver)
}
