package device

import (
	"log/slog"

	"github.com/tavonet/netstack/ethernet"
)

// NullDriver discards every frame handed to it; it never opens a real
// resource and never delivers anything to its onRecv callback. Useful as a
// placeholder link and in tests exercising the Registry lifecycle in
// isolation from any real I/O.
type NullDriver struct {
	Log *slog.Logger
}

func (n *NullDriver) Open(d *Device) error  { return nil }
func (n *NullDriver) Close(d *Device) error { return nil }

func (n *NullDriver) Send(d *Device, dst [6]byte, ethertype ethernet.Type, payload []byte) error {
	if n.Log != nil {
		n.Log.Debug("null: discarding transmit", slog.String("device", d.Name), slog.Int("len", len(payload)))
	}
	return nil
}

// Service is a no-op: the null device never raises an IRQ, so this is
// never called in practice.
func (n *NullDriver) Service(d *Device) error { return nil }

// NewNull returns a Device backed by NullDriver, matching the original
// stack's always-present sink device.
func NewNull(index int, name string, log *slog.Logger) *Device {
	return New(index, name, TypeNull, 1500, [6]byte{}, &NullDriver{Log: log}, nil)
}
