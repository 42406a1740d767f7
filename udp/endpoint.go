package udp

import "fmt"

// Any is the IPv4 "unspecified" address, matching any address in a bind
// lookup.
var Any = [4]byte{0, 0, 0, 0}

// Endpoint is an (address, port) pair identifying one end of a UDP
// datagram exchange.
type Endpoint struct {
	Addr [4]byte
	Port uint16
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", e.Addr[0], e.Addr[1], e.Addr[2], e.Addr[3], e.Port)
}

// matches reports whether a PCB bound to local e accepts a datagram
// addressed to incoming, per the binding rule: ports must be equal, and
// either side's address may be ANY to accept any peer on that side.
func (e Endpoint) matches(incoming Endpoint) bool {
	if e.Port != incoming.Port {
		return false
	}
	return e.Addr == Any || incoming.Addr == Any || e.Addr == incoming.Addr
}
