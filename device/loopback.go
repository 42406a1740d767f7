package device

import (
	"sync"

	"github.com/tavonet/netstack/ethernet"
)

// LoopbackMTU is the maximum possible datagram size, matching the teaching
// stack's in-memory loopback which has no real MTU limit.
const LoopbackMTU = 1<<16 - 1

type loopbackEntry struct {
	ethertype ethernet.Type
	data      []byte
}

// LoopbackDriver queues frames in memory and raises the device's IRQ (via
// Raise, which Send calls after queueing) instead of touching any real fd;
// Recv drains one entry per call.
type LoopbackDriver struct {
	mu    sync.Mutex
	queue []loopbackEntry

	// Raise is called after a frame is queued so the signal loop can
	// schedule an IRQ cycle for this device. Left nil in tests that drain
	// the queue synchronously.
	Raise func()
}

func (l *LoopbackDriver) Open(d *Device) error  { return nil }
func (l *LoopbackDriver) Close(d *Device) error { return nil }

func (l *LoopbackDriver) Send(d *Device, dst [6]byte, ethertype ethernet.Type, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	l.mu.Lock()
	l.queue = append(l.queue, loopbackEntry{ethertype: ethertype, data: cp})
	l.mu.Unlock()
	if l.Raise != nil {
		l.Raise()
	}
	return nil
}

// Recv pops the oldest queued frame and delivers it to d's onRecv callback.
// It is a no-op, not an error, when the queue is empty: spurious IRQ
// delivery is normal on a shared signal vector.
func (l *LoopbackDriver) Recv(d *Device) {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.mu.Unlock()
		return
	}
	e := l.queue[0]
	l.queue = l.queue[1:]
	l.mu.Unlock()
	d.deliver(e.ethertype, e.data)
}

// Service drains one queued frame, matching the Driver interface the
// registry dispatches IRQs through.
func (l *LoopbackDriver) Service(d *Device) error {
	l.Recv(d)
	return nil
}

// NewLoopback returns a loopback Device: no hardware address, no ARP, MTU
// LoopbackMTU.
func NewLoopback(index int, name string, irq int, onRecv ReceiveFunc) (*Device, *LoopbackDriver) {
	drv := &LoopbackDriver{}
	d := New(index, name, TypeLoopback, LoopbackMTU, [6]byte{}, drv, onRecv)
	d.IRQ = irq
	return d, drv
}
