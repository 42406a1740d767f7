package device

import (
	"log/slog"

	"github.com/tavonet/netstack/ethernet"
	"github.com/tavonet/netstack/internal"
)

// LoggingDriver wraps another Driver and logs every frame it sends, acting
// as a crude packet-capture trace when enabled (the -pcap CLI flag).
type LoggingDriver struct {
	Inner Driver
	Log   *slog.Logger
}

func (l *LoggingDriver) Open(d *Device) error    { return l.Inner.Open(d) }
func (l *LoggingDriver) Close(d *Device) error   { return l.Inner.Close(d) }
func (l *LoggingDriver) Service(d *Device) error { return l.Inner.Service(d) }

func (l *LoggingDriver) Send(d *Device, dst [6]byte, ethertype ethernet.Type, payload []byte) error {
	if l.Log != nil {
		l.Log.Debug("pcap: tx",
			slog.String("device", d.Name),
			internal.SlogAddr6("dst", &dst),
			slog.String("ethertype", ethertype.String()),
			slog.Int("len", len(payload)),
		)
	}
	return l.Inner.Send(d, dst, ethertype, payload)
}
