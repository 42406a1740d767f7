package icmpv4

import (
	"log/slog"

	"github.com/tavonet/netstack"
)

// IPv4Sender is the minimal surface needed to hand an ICMP datagram back to
// the IPv4 send path, satisfied by ipv4.Send bound to its stack state.
type IPv4Sender func(proto netstack.IPProto, data []byte, src, dst [4]byte) error

// Recv handles an inbound ICMP payload: echo requests get an echo-reply
// sent back to the original source with the request's code/identifier/
// sequence copied over; every other type is silently ignored.
func Recv(send IPv4Sender, log *slog.Logger, src, dst [4]byte, payload []byte) error {
	frm, err := NewFrame(payload)
	if err != nil {
		return nil
	}
	var v netstack.Validator
	frm.ValidateSize(&v)
	if v.HasError() {
		return nil
	}
	if frm.Type() != TypeEcho {
		return nil
	}
	if log != nil {
		log.Debug("icmpv4: echo request", slog.Uint64("id", uint64(frm.Identifier())), slog.Uint64("seq", uint64(frm.SequenceNumber())))
	}

	buf := make([]byte, sizeHeader+len(frm.Data()))
	reply, err := BuildEcho(buf, TypeEchoReply, frm.Code(), frm.Identifier(), frm.SequenceNumber(), frm.Data())
	if err != nil {
		return err
	}
	return send(netstack.IPProtoICMP, reply.RawData(), dst, src)
}
