package arp

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"github.com/tavonet/netstack"
	"github.com/tavonet/netstack/ethernet"
)

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer is smaller than the 28-byte IPv4-over-Ethernet ARP message size,
// the only shape this stack generates or parses.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderv4 {
		return Frame{buf: nil}, errShortARP
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an ARP message restricted to the
// Ethernet/IPv4 address-family combination, and provides methods for
// manipulating, validating and retrieving its fields. See [RFC826].
//
// [RFC826]: https://tools.ietf.org/html/rfc826
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (afrm Frame) RawData() []byte { return afrm.buf }

// Hardware returns the hardware type and hardware address length fields.
func (afrm Frame) Hardware() (typ uint16, length uint8) {
	return binary.BigEndian.Uint16(afrm.buf[0:2]), afrm.buf[4]
}

// SetHardware sets the hardware type and hardware address length fields.
func (afrm Frame) SetHardware(typ uint16, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[0:2], typ)
	afrm.buf[4] = length
}

// Protocol returns the protocol type and protocol address length fields.
// See [ethernet.Type].
func (afrm Frame) Protocol() (typ ethernet.Type, length uint8) {
	return ethernet.Type(binary.BigEndian.Uint16(afrm.buf[2:4])), afrm.buf[5]
}

// SetProtocol sets the protocol type and protocol address length fields.
func (afrm Frame) SetProtocol(typ ethernet.Type, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[2:4], uint16(typ))
	afrm.buf[5] = length
}

// Operation returns the ARP operation field. See [Operation].
func (afrm Frame) Operation() Operation { return Operation(binary.BigEndian.Uint16(afrm.buf[6:8])) }

// SetOperation sets the ARP operation field. See [Operation].
func (afrm Frame) SetOperation(op Operation) { binary.BigEndian.PutUint16(afrm.buf[6:8], uint16(op)) }

// Sender4 returns pointers to the sender hardware and IPv4 protocol address
// fields. In a request, the hardware address identifies the sender; in a
// reply, it identifies the host the original request was looking for.
func (afrm Frame) Sender4() (hw *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[8:14]), (*[4]byte)(afrm.buf[14:18])
}

// Target4 returns pointers to the target hardware and IPv4 protocol address
// fields. In a request the hardware address is ignored by the sender and is
// typically zeroed; in a reply it identifies the host that sent the request.
func (afrm Frame) Target4() (hw *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[18:24]), (*[4]byte)(afrm.buf[24:28])
}

// ClearHeader zeros the fixed 8-byte header.
func (afrm Frame) ClearHeader() {
	for i := range afrm.buf[:sizeHeader] {
		afrm.buf[i] = 0
	}
}

// Build writes a complete Ethernet/IPv4 ARP message of op to buf, which must
// be at least sizeHeaderv4 bytes, and returns a Frame over it.
func Build(buf []byte, op Operation, senderHW [6]byte, senderIP [4]byte, targetHW [6]byte, targetIP [4]byte) (Frame, error) {
	afrm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	afrm.SetHardware(HardwareTypeEthernet, HardwareAddrLengthEthernet)
	afrm.SetProtocol(ethernet.TypeIPv4, ProtocolAddrLengthIPv4)
	afrm.SetOperation(op)
	sh, sp := afrm.Sender4()
	*sh, *sp = senderHW, senderIP
	th, tp := afrm.Target4()
	*th, *tp = targetHW, targetIP
	return afrm, nil
}

//
// Validation API.
//

// ValidateSize checks the frame declares the hardware/protocol address
// family this stack supports (Ethernet/IPv4) and that the buffer is long
// enough to hold a full message of that shape.
func (afrm Frame) ValidateSize(v *netstack.Validator) {
	if len(afrm.buf) < sizeHeader {
		v.AddError(errShortARP)
		return
	}
	htype, hlen := afrm.Hardware()
	ptype, plen := afrm.Protocol()
	if htype != HardwareTypeEthernet {
		v.AddError(errUnsupportedHW)
	}
	if hlen != HardwareAddrLengthEthernet {
		v.AddError(errUnsupportedHWLen)
	}
	if ptype != ethernet.TypeIPv4 {
		v.AddError(errUnsupportedProto)
	}
	if plen != ProtocolAddrLengthIPv4 {
		v.AddError(errUnsupportedProLen)
	}
	if len(afrm.buf) < sizeHeaderv4 {
		v.AddError(errShortARP)
	}
}

func (afrm Frame) String() string {
	op := afrm.Operation().String()
	sh, sp := afrm.Sender4()
	th, tp := afrm.Target4()
	sender := netip.AddrFrom4(*sp)
	target := netip.AddrFrom4(*tp)
	return fmt.Sprintf("ARP %s SENDER=(%s,%s) TARGET=(%s,%s)",
		op, net.HardwareAddr(sh[:]).String(), sender, net.HardwareAddr(th[:]).String(), target)
}
