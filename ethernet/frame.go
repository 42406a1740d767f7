package ethernet

import (
	"encoding/binary"
	"errors"

	"github.com/tavonet/netstack"
)

var (
	errShort    = errors.New("ethernet: too short")
	errNotForUs = errors.New("ethernet: destination not ours")
)

// NewFrame returns a Frame with data set to buf. An error is returned if the
// buffer size is smaller than the fixed 14-byte header. Callers should still
// call [Frame.ValidateSize] before reading Payload to avoid panics.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an Ethernet II frame, not including
// preamble or trailing FCS (the TAP device/kernel strip and append those),
// and provides methods for manipulating, validating and retrieving fields
// and payload data. See [IEEE 802.3].
//
// [IEEE 802.3]: https://standards.ieee.org/ieee/802.3/7071/
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (efrm Frame) RawData() []byte { return efrm.buf }

// HeaderLength returns the length of the Ethernet header, always 14: this
// stack does not support 802.1Q VLAN tagging.
func (efrm Frame) HeaderLength() int { return sizeHeader }

// Payload returns the data portion of the Ethernet frame following the
// header.
func (efrm Frame) Payload() []byte { return efrm.buf[sizeHeader:] }

// DestinationHardwareAddr returns the target's MAC address for the frame.
func (efrm Frame) DestinationHardwareAddr() (dst *[6]byte) {
	return (*[6]byte)(efrm.buf[0:6])
}

// IsBroadcast returns true if the destination is the broadcast address
// ff:ff:ff:ff:ff:ff, false otherwise.
func (efrm Frame) IsBroadcast() bool {
	return efrm.buf[0] == 0xff && efrm.buf[1] == 0xff && efrm.buf[2] == 0xff &&
		efrm.buf[3] == 0xff && efrm.buf[4] == 0xff && efrm.buf[5] == 0xff
}

// SourceHardwareAddr returns the sender's MAC address of the frame.
func (efrm Frame) SourceHardwareAddr() (src *[6]byte) {
	return (*[6]byte)(efrm.buf[6:12])
}

// SetAddrs sets both the destination and source MAC address fields.
func (efrm Frame) SetAddrs(dst, src [6]byte) {
	copy(efrm.buf[0:6], dst[:])
	copy(efrm.buf[6:12], src[:])
}

// EtherType returns the EtherType field of the frame. Only [TypeIPv4] and
// [TypeARP] are recognised by this stack's dispatch; any other value is a
// decode error at the caller.
func (efrm Frame) EtherType() Type {
	return Type(binary.BigEndian.Uint16(efrm.buf[12:14]))
}

// SetEtherType sets the EtherType field of the frame.
func (efrm Frame) SetEtherType(v Type) {
	binary.BigEndian.PutUint16(efrm.buf[12:14], uint16(v))
}

// ClearHeader zeros out the fixed header contents.
func (efrm Frame) ClearHeader() {
	for i := range efrm.buf[:sizeHeader] {
		efrm.buf[i] = 0
	}
}

// Accept reports whether a frame received on a device with hardware address
// ourMAC should be accepted by that device: its destination must equal
// ourMAC or be the link broadcast address. The caller drops the frame as a
// decode error when Accept returns non-nil.
func (efrm Frame) Accept(ourMAC [6]byte) error {
	if *efrm.DestinationHardwareAddr() != ourMAC && !efrm.IsBroadcast() {
		return errNotForUs
	}
	return nil
}

// BuildHeader writes a complete Ethernet header to buf, which must be at
// least HeaderLength bytes long, and returns a Frame over it.
func BuildHeader(buf []byte, dst, src [6]byte, ethertype Type) (Frame, error) {
	efrm, err := NewFrame(buf)
	if err != nil {
		return Frame{}, err
	}
	efrm.SetAddrs(dst, src)
	efrm.SetEtherType(ethertype)
	return efrm, nil
}

// Pad returns frame grown with trailing zeros, if necessary, so its total
// length is at least minFrameLen. Ethernet requires a minimum frame size of
// 60 bytes pre-FCS; transmit paths pad up to [MinFrameLength].
func Pad(frame []byte, minFrameLen int) []byte {
	if len(frame) >= minFrameLen {
		return frame
	}
	padded := make([]byte, minFrameLen)
	copy(padded, frame)
	return padded
}

// MinFrameLength is the smallest legal Ethernet frame size, header+payload,
// excluding any trailing FCS.
const MinFrameLength = sizeHeader + minPayload

//
// Validation API.
//

// ValidateSize checks the frame's size against the fixed header length. It
// records a non-nil error on v on finding an inconsistency.
func (efrm Frame) ValidateSize(v *netstack.Validator) {
	if len(efrm.buf) < sizeHeader {
		v.AddError(errShort)
	}
}
