package ipv4

import "encoding/binary"

// Route binds a network prefix to the interface that reaches it, optionally
// via a gateway. The default route uses network=netmask=0.0.0.0 with
// NextHop set to the gateway address.
type Route struct {
	Network   [4]byte
	Netmask   [4]byte
	Interface *Interface
	NextHop   [4]byte
	hasNextHop bool
}

// HasNextHop reports whether the route carries an explicit gateway, as
// opposed to routing directly to the destination address.
func (r Route) HasNextHop() bool { return r.hasNextHop }

// Router is an ordered collection of routes. Lookup returns the route with
// the longest matching netmask; ties are broken by insertion order, first
// registered wins.
type Router struct {
	routes []Route
}

func maskAsUint32(m [4]byte) uint32 { return binary.BigEndian.Uint32(m[:]) }

func addrAsUint32(a [4]byte) uint32 { return binary.BigEndian.Uint32(a[:]) }

// Register appends a route to iface's attached network, with no gateway.
func (r *Router) Register(network [4]byte, iface *Interface) {
	r.routes = append(r.routes, Route{
		Network:   network,
		Netmask:   iface.Netmask,
		Interface: iface,
	})
}

// RegisterDefault prepends a default route (network=netmask=0.0.0.0) via
// gateway on iface.
func (r *Router) RegisterDefault(iface *Interface, gateway [4]byte) {
	def := Route{
		Interface:  iface,
		NextHop:    gateway,
		hasNextHop: true,
	}
	r.routes = append([]Route{def}, r.routes...)
}

// Lookup returns the route matching dst with the longest netmask, ties
// broken by insertion order. A route matches when dst and the route's
// network agree on every bit of the route's netmask. The default route's
// /0 mask matches every address, so it is selected only when no longer
// prefix matches. The second return value is false if no route matches.
func (r *Router) Lookup(dst [4]byte) (Route, bool) {
	d := addrAsUint32(dst)
	var best Route
	var bestMask uint32
	found := false
	for _, route := range r.routes {
		mask := maskAsUint32(route.Netmask)
		net := addrAsUint32(route.Network)
		if d&mask != net&mask {
			continue
		}
		if !found || mask > bestMask {
			best = route
			bestMask = mask
			found = true
		}
	}
	return best, found
}
