package device

import (
	"fmt"
	"sync"
)

// Registry holds an ordered collection of devices and dispatches IRQs to
// them by number, matching the interrupt.rs 1:1 device↔IRQ wiring this
// stack's signal loop assumes.
type Registry struct {
	mu      sync.Mutex
	devices []*Device
}

// Add appends dev to the registry. It does not open it.
func (r *Registry) Add(dev *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, dev)
}

// Devices returns a snapshot slice of the registered devices, in insertion
// order.
func (r *Registry) Devices() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// OpenAll opens every device, stopping and returning an error at the first
// failure, with whatever devices that did open left open: callers typically
// treat a failure here as fatal startup and exit anyway.
func (r *Registry) OpenAll() error {
	for _, d := range r.Devices() {
		if err := d.Open(); err != nil {
			return fmt.Errorf("opening %s: %w", d.Name, err)
		}
	}
	return nil
}

// CloseAll closes every device, continuing past errors and returning the
// first one encountered so shutdown always runs to completion.
func (r *Registry) CloseAll() error {
	var first error
	for _, d := range r.Devices() {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// HandleIRQ finds the device bound to irq and asks its driver to service it,
// delivering any decoded frame to the device's onRecv callback. Unknown IRQ
// numbers are a no-op: spurious or shared signals are expected on a shared
// real-time signal vector.
func (r *Registry) HandleIRQ(irq int, dispatch func(d *Device) error) error {
	for _, d := range r.Devices() {
		if d.IRQ == irq {
			return dispatch(d)
		}
	}
	return nil
}
