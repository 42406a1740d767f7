package udp

import (
	"log/slog"

	"github.com/tavonet/netstack"
)

// IPv4Sender is the minimal surface needed to hand a UDP datagram to the
// IPv4 send path, satisfied by ipv4.Send bound to its stack state.
type IPv4Sender func(proto netstack.IPProto, data []byte, src, dst [4]byte) error

// Send composes a UDP datagram carrying payload from src to dst, seeding
// the datagram checksum with the IPv4 pseudo-header per RFC 768, and hands
// it to send for IPv4 transmission.
func Send(send IPv4Sender, src, dst Endpoint, payload []byte) error {
	if len(payload) > IPv4PayloadMax-sizeHeader {
		return errTooLong
	}
	length := sizeHeader + len(payload)
	buf := make([]byte, length)
	ufrm, err := Build(buf, src.Port, dst.Port, payload)
	if err != nil {
		return err
	}

	var crc netstack.CRC
	CRCWritePseudo(&crc, src.Addr, dst.Addr, uint16(length))
	crc.Write(buf)
	ufrm.SetCRC(netstack.NeverZero(crc.Sum16()))

	return send(netstack.IPProtoUDP, buf, src.Addr, dst.Addr)
}

// Recv validates an inbound UDP datagram's length and pseudo-header
// checksum, then enqueues it on whichever bound PCB's local endpoint
// matches (dst, header.DestinationPort). Packets for which no PCB is
// bound, or that fail validation, are logged and discarded; this never
// propagates to the caller as an error a failed send would.
func Recv(table *Table, log *slog.Logger, src, dst [4]byte, payload []byte) error {
	ufrm, err := NewFrame(payload)
	if err != nil {
		logDrop(log, "decode", err)
		return nil
	}
	var v netstack.Validator
	ufrm.ValidatePseudo(&v, src, dst)
	if v.HasError() {
		logDrop(log, "validate", v.Err())
		return nil
	}

	foreign := Endpoint{Addr: src, Port: ufrm.SourcePort()}
	if err := table.enqueue(foreign, dst, ufrm.DestinationPort(), ufrm.Payload()); err != nil {
		logDrop(log, "no-pcb", err)
		return nil
	}
	if log != nil {
		log.Debug("udp: datagram queued", slog.String("foreign", foreign.String()), slog.Uint64("dst_port", uint64(ufrm.DestinationPort())))
	}
	return nil
}

func logDrop(log *slog.Logger, stage string, err error) {
	if log == nil {
		return
	}
	log.Debug("udp: dropping datagram", slog.String("stage", stage), slog.String("err", err.Error()))
}
