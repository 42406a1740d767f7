package ipv4

import (
	"weak"

	"github.com/tavonet/netstack/device"
)

// Interface is a network-layer address binding attached to a device: a
// device carries at most one IPv4 interface, and an interface belongs to
// exactly one device. The device→interface link is
// strong (the device registry/attachment list owns the Interface); the
// interface→device link is weak, to avoid a reference cycle.
type Interface struct {
	Unicast [4]byte
	Netmask [4]byte

	dev weak.Pointer[device.Device]
}

// NewInterface returns an Interface bound to dev with the given unicast
// address and netmask, holding only a weak reference to dev.
func NewInterface(unicast, netmask [4]byte, dev *device.Device) *Interface {
	return &Interface{
		Unicast: unicast,
		Netmask: netmask,
		dev:     weak.Make(dev),
	}
}

// Broadcast computes the interface's directed broadcast address:
// unicast | ^netmask on the host portion, derived fresh on every call so it
// can never drift from Unicast/Netmask.
func (i *Interface) Broadcast() [4]byte {
	var b [4]byte
	for k := range b {
		b[k] = i.Unicast[k] | ^i.Netmask[k]
	}
	return b
}

// Device upgrades the weak back-reference to the owning device. The second
// return value is false if the device has since been collected.
func (i *Interface) Device() (*device.Device, bool) {
	d := i.dev.Value()
	return d, d != nil
}
