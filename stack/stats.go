package stack

import (
	"fmt"
	"sync/atomic"
)

// Stats holds lightweight atomic frame counters for a running Stack. There
// is no HTTP server in this stack to export these as Prometheus metrics
// from, so they're exposed through a String() method instead.
type Stats struct {
	FramesIn    atomic.Uint64
	FramesOut   atomic.Uint64
	Drops       atomic.Uint64
	ARPRequests atomic.Uint64
	ARPReplies  atomic.Uint64
}

func (s *Stats) String() string {
	return fmt.Sprintf(
		"in=%d out=%d drops=%d arp_req=%d arp_reply=%d",
		s.FramesIn.Load(), s.FramesOut.Load(), s.Drops.Load(),
		s.ARPRequests.Load(), s.ARPReplies.Load(),
	)
}
