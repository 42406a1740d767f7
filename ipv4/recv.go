package ipv4

import (
	"log/slog"

	"github.com/tavonet/netstack"
)

// Handler processes a fully-validated IPv4 payload addressed to this host,
// implemented by the ICMP and UDP recv entry points.
type Handler func(iface *Interface, src, dst [4]byte, payload []byte) error

// Dispatch routes a decoded IPv4 protocol number to its handler. Protocols
// other than ICMP and UDP are logged and discarded; an ICMP or UDP packet
// whose handler is nil is discarded without logging.
type Dispatch struct {
	ICMP Handler
	UDP  Handler
	Log  *slog.Logger
}

// Recv parses, validates and, if addressed to this interface, dispatches an
// IPv4 packet read off the link. Packets addressed elsewhere, or that fail
// validation, are silently discarded without reaching any transport
// handler.
func (d Dispatch) Recv(iface *Interface, bytes []byte) error {
	ifrm, err := NewFrame(bytes)
	if err != nil {
		d.logDrop("decode", err)
		return nil
	}
	var v netstack.Validator
	ifrm.Validate(&v)
	if v.HasError() {
		d.logDrop("validate", v.Err())
		return nil
	}

	dst := *ifrm.DestinationAddr()
	if dst != iface.Unicast && dst != iface.Broadcast() && dst != Broadcast {
		return nil
	}

	src := *ifrm.SourceAddr()
	payload := ifrm.Payload()

	switch ifrm.Protocol() {
	case netstack.IPProtoICMP:
		if d.ICMP != nil {
			return d.ICMP(iface, src, dst, payload)
		}
	case netstack.IPProtoUDP:
		if d.UDP != nil {
			return d.UDP(iface, src, dst, payload)
		}
	default:
		d.logDrop("protocol", nil)
	}
	return nil
}

func (d Dispatch) logDrop(stage string, err error) {
	if d.Log == nil {
		return
	}
	if err != nil {
		d.Log.Debug("ipv4: dropping packet", slog.String("stage", stage), slog.String("err", err.Error()))
	} else {
		d.Log.Debug("ipv4: dropping packet", slog.String("stage", stage))
	}
}
