package ipv4

import (
	"errors"

	"github.com/tavonet/netstack"
	"github.com/tavonet/netstack/arp"
	"github.com/tavonet/netstack/device"
	"github.com/tavonet/netstack/ethernet"
)

var (
	ErrNoRoute       = errors.New("ipv4: no route to destination")
	ErrDeadDevice    = errors.New("ipv4: interface's device is gone")
	ErrInvalidSource = errors.New("ipv4: invalid source address")
	ErrPacketTooLong = errors.New("ipv4: packet exceeds device MTU")
)

// Any is the IPv4 "unspecified" address 0.0.0.0.
var Any = [4]byte{0, 0, 0, 0}

// Broadcast is the IPv4 limited broadcast address 255.255.255.255.
var Broadcast = [4]byte{255, 255, 255, 255}

const defaultTTL = 64

// Send routes, builds and transmits an IPv4 packet carrying proto/data from
// src to dst, resolving the next-hop link address via the ARP cache where
// the outgoing device requires it.
//
// Per the routing contract an Incomplete ARP resolution causes the packet to
// be dropped silently; Send still reports success to the caller, who is
// expected to retry (implicitly, by sending again) once the ARP exchange
// completes on a later cycle.
func Send(router *Router, cache *arp.Cache, idgen *IDGenerator, proto netstack.IPProto, data []byte, src, dst [4]byte) error {
	route, ok := router.Lookup(dst)
	if !ok {
		return ErrNoRoute
	}
	dev, ok := route.Interface.Device()
	if !ok {
		return ErrDeadDevice
	}

	broadcastDst := dst == route.Interface.Broadcast() || dst == Broadcast
	if broadcastDst {
		if src == Any {
			return ErrInvalidSource
		}
	} else if src != Any && src != route.Interface.Unicast {
		return ErrInvalidSource
	}

	totalLength := sizeHeader + len(data)
	if totalLength >= 1<<16 {
		return ErrPacketTooLong
	}
	if totalLength > dev.MTU {
		return ErrPacketTooLong
	}

	buf := make([]byte, totalLength)
	ifrm, err := Build(buf, idgen.Next(), proto, defaultTTL, uint16(totalLength), src, dst)
	if err != nil {
		return err
	}
	copy(buf[sizeHeader:], data)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	linkDst, resolved, err := resolveLinkDestination(dev, route, cache, dst)
	if err != nil {
		return err
	}
	if !resolved {
		// ARP resolution Incomplete: drop silently, report success.
		return nil
	}
	return dev.Send(linkDst, ethernet.TypeIPv4, buf)
}

func resolveLinkDestination(dev *device.Device, route Route, cache *arp.Cache, dst [4]byte) (linkDst [6]byte, resolved bool, err error) {
	if !dev.RequiresARP() {
		return ethernet.BroadcastAddr(), true, nil
	}
	if dst == route.Interface.Broadcast() || dst == Broadcast {
		return ethernet.BroadcastAddr(), true, nil
	}
	nextHop := dst
	if route.HasNextHop() {
		nextHop = route.NextHop
	}
	entry, err := arp.Resolve(cache, dev, dev.HardwareAddr(), route.Interface.Unicast, nextHop)
	if err != nil {
		return [6]byte{}, false, err
	}
	if entry.State != arp.Resolved {
		return [6]byte{}, false, nil
	}
	return entry.HardwareAddr, true, nil
}
