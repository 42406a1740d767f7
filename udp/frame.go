package udp

import (
	"encoding/binary"

	"github.com/tavonet/netstack"
)

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer size is smaller than the fixed 8-byte header. Callers should still
// call [Frame.ValidateSize] before working with the payload to avoid panics.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of a UDP datagram
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [RFC768].
//
// [RFC768]: https://tools.ietf.org/html/rfc768
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (ufrm Frame) RawData() []byte { return ufrm.buf }

// SourcePort identifies the sending port for the UDP packet. Must be non-zero.
func (ufrm Frame) SourcePort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[0:2])
}

// SetSourcePort sets UDP source port. See [Frame.SourcePort]
func (ufrm Frame) SetSourcePort(src uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[0:2], src)
}

// DestinationPort identifies the receiving port for the UDP packet. Must be non-zero.
func (ufrm Frame) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[2:4])
}

// SetDestinationPort sets UDP destination port. See [Frame.DestinationPort]
func (ufrm Frame) SetDestinationPort(dst uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[2:4], dst)
}

// Length specifies length in bytes of UDP header and UDP payload. The minimum length
// is 8 bytes (UDP header length). This field should match the result of the IP header
// TotalLength field minus the IP header size: udp.Length == ip.TotalLength - 4*ip.IHL
func (ufrm Frame) Length() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[4:6])
}

// SetLength sets the UDP header's length field. See [Frame.Length].
func (ufrm Frame) SetLength(length uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[4:6], length)
}

// CRC returns the checksum field in the UDP header.
func (ufrm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[6:8])
}

// SetCRC sets the UDP header's CRC field. See [Frame.CRC].
func (ufrm Frame) SetCRC(checksum uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[6:8], checksum)
}

// Payload returns the payload content section of the UDP packet.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (ufrm Frame) Payload() []byte {
	l := ufrm.Length()
	return ufrm.buf[sizeHeader:l]
}

// ClearHeader zeros out the header contents.
func (ufrm Frame) ClearHeader() {
	for i := range ufrm.buf[:sizeHeader] {
		ufrm.buf[i] = 0
	}
}

// CRCWritePseudo folds the pseudo-header this stack checksums a UDP
// datagram against — (src, dst, zero, proto=UDP, udp length) — into crc
// ahead of writing the datagram bytes themselves, per RFC 768.
func CRCWritePseudo(crc *netstack.CRC, src, dst [4]byte, length uint16) {
	crc.Write(src[:])
	crc.Write(dst[:])
	crc.AddUint16(uint16(netstack.IPProtoUDP))
	crc.AddUint16(length)
}

// Build writes a complete UDP header into buf (which must be at least
// sizeHeader+len(payload) bytes), copies payload after it, and leaves the
// checksum field zero for the caller to compute and patch in via SetCRC.
func Build(buf []byte, srcPort, dstPort uint16, payload []byte) (Frame, error) {
	length := sizeHeader + len(payload)
	ufrm, err := NewFrame(buf[:length])
	if err != nil {
		return Frame{}, err
	}
	ufrm.ClearHeader()
	ufrm.SetSourcePort(srcPort)
	ufrm.SetDestinationPort(dstPort)
	ufrm.SetLength(uint16(length))
	copy(ufrm.Payload(), payload)
	return ufrm, nil
}

//
// Validation API.
//

// ValidateSize checks the frame's size fields and compares with the actual
// buffer holding the frame.
func (ufrm Frame) ValidateSize(v *netstack.Validator) {
	if len(ufrm.buf) < sizeHeader {
		v.AddError(errShort)
		return
	}
	ul := ufrm.Length()
	if ul < sizeHeader {
		v.AddError(errBadLen)
	}
	if int(ul) != len(ufrm.buf) {
		v.AddError(errBadLen)
	}
}

// ValidatePseudo additionally checks the pseudo-header checksum, seeded
// with src/dst as carried by the enclosing IPv4 header.
func (ufrm Frame) ValidatePseudo(v *netstack.Validator, src, dst [4]byte) {
	ufrm.ValidateSize(v)
	if v.HasError() {
		return
	}
	var crc netstack.CRC
	CRCWritePseudo(&crc, src, dst, ufrm.Length())
	crc.Write(ufrm.buf)
	if crc.Sum16() != 0 {
		v.AddError(errBadCRC)
	}
}
