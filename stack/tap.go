//go:build linux

package stack

import "github.com/tavonet/netstack/device"

// AddTap registers an Ethernet-over-TAP device named ifname. hwAddr may be
// the zero value, in which case opening the device queries the kernel for
// the TAP interface's assigned MAC address. Its IRQ number is assigned by
// Finalize. When capture is true every transmitted frame is logged at
// debug level (the -pcap CLI flag).
func (s *Stack) AddTap(ifname string, mtu int, hwAddr [6]byte, capture bool) *device.Device {
	idx := len(s.Registry.Devices())
	d := device.NewTap(idx, ifname, mtu, hwAddr, -1, s.onRecv, s.Log)
	s.wrapCapture(d, capture)
	s.Registry.Add(d)
	return d
}

// AddBridge registers a device attached to a host NIC via a raw
// AF_PACKET socket rather than a TAP device. Its IRQ number is assigned
// by Finalize. When capture is true every transmitted frame is logged at
// debug level (the -pcap CLI flag).
func (s *Stack) AddBridge(ifaceName string, mtu int, capture bool) *device.Device {
	idx := len(s.Registry.Devices())
	d := device.NewBridge(idx, ifaceName, mtu, -1, s.onRecv, s.Log)
	s.wrapCapture(d, capture)
	s.Registry.Add(d)
	return d
}

func (s *Stack) wrapCapture(d *device.Device, capture bool) {
	if !capture {
		return
	}
	d.WrapDriver(func(inner device.Driver) device.Driver {
		return &device.LoggingDriver{Inner: inner, Log: s.Log}
	})
}
