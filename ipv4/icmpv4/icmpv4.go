// Package icmpv4 implements the subset of ICMP this stack supports: echo
// request and echo reply (RFC 792 §3.6). Every other ICMP type is ignored on
// receive and never generated on send.
package icmpv4

import (
	"encoding/binary"
	"errors"

	"github.com/tavonet/netstack"
)

// sizeHeader is the 8-byte fixed ICMP header: type(1) | code(1) | checksum(2) | values(4).
const sizeHeader = 8

// Type identifies an ICMP message type. Only Echo and EchoReply are ever
// built or acted on.
type Type uint8

const (
	TypeEchoReply Type = 0 // echo reply
	TypeEcho      Type = 8 // echo
)

func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "EchoReply"
	case TypeEcho:
		return "Echo"
	default:
		return "Unknown"
	}
}

var errShortFrame = errors.New("icmpv4: short frame")

// NewFrame returns a Frame over buf. An error is returned if buf is smaller
// than the 8-byte header.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Frame is a zero-copy view of an ICMP message: type | code | checksum |
// values, followed by payload.
type Frame struct {
	buf []byte
}

func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) Type() Type { return Type(frm.buf[0]) }

func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

func (frm Frame) Code() uint8 { return frm.buf[1] }

func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field.
func (frm Frame) CRC() uint16 { return binary.BigEndian.Uint16(frm.buf[2:4]) }

// SetCRC sets the checksum field.
func (frm Frame) SetCRC(crc uint16) { binary.BigEndian.PutUint16(frm.buf[2:4], crc) }

// Identifier returns the echo identifier field.
func (frm Frame) Identifier() uint16 { return binary.BigEndian.Uint16(frm.buf[4:6]) }

// SetIdentifier sets the echo identifier field.
func (frm Frame) SetIdentifier(id uint16) { binary.BigEndian.PutUint16(frm.buf[4:6], id) }

// SequenceNumber returns the echo sequence number field.
func (frm Frame) SequenceNumber() uint16 { return binary.BigEndian.Uint16(frm.buf[6:8]) }

// SetSequenceNumber sets the echo sequence number field.
func (frm Frame) SetSequenceNumber(seq uint16) { binary.BigEndian.PutUint16(frm.buf[6:8], seq) }

// Data returns the payload following the fixed header.
func (frm Frame) Data() []byte { return frm.buf[sizeHeader:] }

// ClearHeader zeros the fixed header.
func (frm Frame) ClearHeader() {
	for i := range frm.buf[:sizeHeader] {
		frm.buf[i] = 0
	}
}

// Checksum computes the Internet checksum over the whole message (header
// with the checksum field treated as zero, plus payload), per RFC 792.
func (frm Frame) Checksum() uint16 {
	var crc netstack.CRC
	crc.AddUint16(binary.BigEndian.Uint16(frm.buf[0:2]))
	crc.Write(frm.buf[4:])
	return crc.Sum16()
}

// BuildEcho writes a complete echo (or echo-reply) message into buf, which
// must be at least sizeHeader+len(data) bytes, computing and setting the
// checksum.
func BuildEcho(buf []byte, t Type, code uint8, identifier, sequence uint16, data []byte) (Frame, error) {
	frm, err := NewFrame(buf[:sizeHeader+len(data)])
	if err != nil {
		return Frame{}, err
	}
	frm.ClearHeader()
	frm.SetType(t)
	frm.SetCode(code)
	frm.SetIdentifier(identifier)
	frm.SetSequenceNumber(sequence)
	copy(frm.Data(), data)
	frm.SetCRC(frm.Checksum())
	return frm, nil
}

// ValidateSize checks buf is at least as long as the fixed header.
func (frm Frame) ValidateSize(v *netstack.Validator) {
	if len(frm.buf) < sizeHeader {
		v.AddError(errShortFrame)
	}
}
