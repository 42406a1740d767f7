package arp

import (
	"log/slog"
	"time"

	"github.com/tavonet/netstack/ethernet"
	"github.com/tavonet/netstack/internal"
)

// Sender transmits an Ethernet frame of the given type to dst. Implemented
// by the device driving the interface resolve/recv operate over.
type Sender interface {
	Send(dst [6]byte, ethertype ethernet.Type, payload []byte) error
}

// BroadcastAddr is the Ethernet broadcast address, the destination of every
// ARP request.
var BroadcastAddr = ethernet.BroadcastAddr()

func send(s Sender, op Operation, ourHW [6]byte, ourIP [4]byte, targetHW [6]byte, targetIP [4]byte, dst [6]byte) error {
	var buf [sizeHeaderv4]byte
	afrm, err := Build(buf[:], op, ourHW, ourIP, targetHW, targetIP)
	if err != nil {
		return err
	}
	return s.Send(dst, ethernet.TypeARP, afrm.RawData())
}

// request broadcasts an ARP request asking who has target.
func request(s Sender, ourHW [6]byte, ourIP [4]byte, target [4]byte) error {
	return send(s, OpRequest, ourHW, ourIP, [6]byte{}, target, BroadcastAddr)
}

// reply unicasts an ARP reply to targetHW/targetIP, identifying us as
// ourHW/ourIP.
func reply(s Sender, ourHW [6]byte, ourIP [4]byte, targetHW [6]byte, targetIP [4]byte) error {
	return send(s, OpReply, ourHW, ourIP, targetHW, targetIP, targetHW)
}

// Resolve looks up target in cache, sending or re-sending an ARP request as
// needed, and returns the current entry. Three cases, mirroring the
// original stack's resolve_arp:
//
//   - absent: insert Incomplete, send a request, return Incomplete.
//   - Incomplete: re-send a request (throttled to at most once per second so
//     a hot send path doesn't flood the wire), return Incomplete.
//   - Resolved (and not expired): return it as-is, no packet sent.
func Resolve(cache *Cache, s Sender, ourHW [6]byte, ourIP [4]byte, target [4]byte) (Entry, error) {
	e, ok := cache.Lookup(target)
	if !ok {
		entry := cache.insertIncomplete(target)
		entry.lastRequest = now()
		if err := request(s, ourHW, ourIP, target); err != nil {
			return Entry{}, err
		}
		return *entry, nil
	}
	if e.State == Incomplete {
		entry := cache.entries[target]
		if now().Sub(entry.lastRequest) >= minRetryInterval*time.Second {
			entry.lastRequest = now()
			if err := request(s, ourHW, ourIP, target); err != nil {
				return Entry{}, err
			}
		}
		return *entry, nil
	}
	return e, nil
}

// Recv parses an incoming ARP frame and updates cache with the sender's
// address, replying to requests addressed to ourIP. frame must have already
// passed ValidateSize. The cache is only updated when the packet targets
// ourIP: accepting sender addresses from traffic addressed elsewhere would
// let an off-path host poison the cache with unsolicited ARP traffic.
// Unrelated operations (neither request nor reply) are ignored, matching
// the original stack's behaviour of only acting on requests/replies
// targeting us.
func Recv(cache *Cache, s Sender, ourHW [6]byte, ourIP [4]byte, frame Frame, log *slog.Logger) error {
	senderHW, senderIP := frame.Sender4()
	targetHW, targetIP := frame.Target4()

	if *targetIP != ourIP {
		return nil
	}
	if op := frame.Operation(); op != OpRequest && op != OpReply {
		return nil
	}
	cache.insertResolved(*senderIP, *senderHW)
	if log != nil {
		log.Debug("arp: resolved and replying",
			slog.String("op", frame.Operation().String()),
			internal.SlogAddr4("sender", senderIP),
		)
	}
	switch frame.Operation() {
	case OpRequest:
		return reply(s, ourHW, ourIP, *senderHW, *senderIP)
	case OpReply:
		_ = targetHW // reply already updated cache above; nothing further to do
		return nil
	}
	return nil
}
