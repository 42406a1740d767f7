package udp

import "errors"

const (
	sizeHeader = 8

	// IPv4PayloadMax is the largest payload an IPv4 datagram on this stack
	// can carry (total length 65535 minus the fixed 20-byte IPv4 header),
	// bounding how large a single UDP datagram's header+data may be.
	IPv4PayloadMax = 1<<16 - 1 - 20

	// PCBTableSize is the number of bind slots in a Table, matching the
	// original stack's fixed UDP_PCB_LENGTH.
	PCBTableSize = 16
)

var (
	errBadLen    = errors.New("udp: bad UDP length")
	errShort     = errors.New("udp: short buffer")
	errBadCRC    = errors.New("udp: bad checksum")
	errTooLong   = errors.New("udp: payload exceeds maximum datagram size")
	errNoPCB     = errors.New("udp: no bound socket for destination")
	errBound     = errors.New("udp: endpoint already bound")
	errTableFull = errors.New("udp: bind table full")
)
