package arp

import "time"

// State is the resolution state of a Cache entry.
type State uint8

const (
	// Incomplete means a request has been sent and no reply has arrived
	// yet, or the prior Resolved entry has expired.
	Incomplete State = iota
	// Resolved means HardwareAddr holds a hardware address learned from an
	// ARP reply within the last [CacheTimeout].
	Resolved
)

func (s State) String() string {
	if s == Resolved {
		return "Resolved"
	}
	return "Incomplete"
}

// Entry is one resolution record held by a Cache.
type Entry struct {
	State       State
	HardwareAddr [6]byte
	timestamp    time.Time
	lastRequest  time.Time
}

// Cache maps IPv4 addresses to their last-known Ethernet hardware address,
// mirroring the tri-state ARP resolution table (absent / Incomplete /
// Resolved) every IP stack keeps.
type Cache struct {
	entries map[[4]byte]*Entry
}

// NewCache returns an empty Cache ready to use.
func NewCache() *Cache {
	return &Cache{entries: make(map[[4]byte]*Entry)}
}

// insertIncomplete records target as Incomplete, starting (or restarting)
// its resolution, and returns the entry so the caller can stamp its
// lastRequest time.
func (c *Cache) insertIncomplete(target [4]byte) *Entry {
	e := &Entry{State: Incomplete, timestamp: now()}
	c.entries[target] = e
	return e
}

// insertResolved records target as Resolved to hw.
func (c *Cache) insertResolved(target [4]byte, hw [6]byte) {
	c.entries[target] = &Entry{State: Resolved, HardwareAddr: hw, timestamp: now()}
}

// Lookup returns the cache entry for target and whether it is present and,
// if Resolved, still within [CacheTimeout]. An expired Resolved entry is
// reported as absent, matching the original stack's timeout check: the
// caller falls back to resolve() which re-queries it.
func (c *Cache) Lookup(target [4]byte) (Entry, bool) {
	e, ok := c.entries[target]
	if !ok {
		return Entry{}, false
	}
	if e.State == Resolved && now().Sub(e.timestamp) >= CacheTimeout*time.Second {
		return Entry{}, false
	}
	return *e, true
}

// now is a seam so tests can avoid races with real wall-clock ARP timeouts;
// production code always uses time.Now.
var now = time.Now
