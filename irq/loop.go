//go:build linux

package irq

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// baseRT is the first real-time signal this stack ever hands out, one
// above SIGRTMIN: POSIX and the Go runtime both reserve SIGRTMIN itself
// for internal use on some platforms, so the original stack's
// INTR_IRQ_DUMMY (SIGRTMIN+1) convention is kept as the floor.
func baseRT() int { return unix.SIGRTMIN() + 1 }

// AllocateIRQs returns n device IRQ signal numbers followed by one L3 IRQ
// signal number, all distinct real-time signals starting at SIGRTMIN+1, in
// the order devices are registered.
func AllocateIRQs(n int) (deviceIRQs []int, l3IRQ int) {
	base := baseRT()
	deviceIRQs = make([]int, n)
	for i := range deviceIRQs {
		deviceIRQs[i] = base + i
	}
	l3IRQ = base + n
	return deviceIRQs, l3IRQ
}

// terminalSignals are the signals that trigger a clean shutdown of the
// loop, per the original stack's TERM_SIGNALS set.
var terminalSignals = []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP}

// DeviceDispatch services one device's pending I/O when its IRQ fires
// (reading a frame off its driver and handing it to the protocol
// queues); it is called with the IRQ number that matched.
type DeviceDispatch func(irq int) error

// Loop is the single synchronous signal-wait thread described in the
// system design: it blocks on the union of link-device IRQs, the L3 IRQ
// and the terminal signals, serializing delivery so at most one handler
// body runs at a time.
type Loop struct {
	Log *slog.Logger

	deviceIRQs []int
	l3IRQ      int
	onDevice   DeviceDispatch
	onL3       func()

	sigCh chan os.Signal
	done  chan struct{}
	once  sync.Once
}

// NewLoop returns a Loop watching deviceIRQs (dispatched via onDevice) and
// l3IRQ (dispatched via onL3), plus the fixed set of terminal signals.
func NewLoop(deviceIRQs []int, l3IRQ int, onDevice DeviceDispatch, onL3 func(), log *slog.Logger) *Loop {
	return &Loop{
		Log:        log,
		deviceIRQs: deviceIRQs,
		l3IRQ:      l3IRQ,
		onDevice:   onDevice,
		onL3:       onL3,
		sigCh:      make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
}

// Run installs the signal handlers and blocks, dispatching IRQs as they
// arrive, until Stop is called or a terminal signal is received. Each
// delivery is handled to completion before the next is read off sigCh, so
// only one IRQ is ever in flight in the core, matching the single
// signal-thread model.
func (l *Loop) Run() error {
	watch := make([]os.Signal, 0, len(l.deviceIRQs)+1+len(terminalSignals))
	for _, irq := range l.deviceIRQs {
		watch = append(watch, syscall.Signal(irq))
	}
	watch = append(watch, syscall.Signal(l.l3IRQ))
	watch = append(watch, terminalSignals...)
	signal.Notify(l.sigCh, watch...)
	defer signal.Stop(l.sigCh)

	for {
		select {
		case <-l.done:
			return nil
		case sig := <-l.sigCh:
			if l.isTerminal(sig) {
				if l.Log != nil {
					l.Log.Info("irq: terminal signal received, shutting down", slog.String("signal", sig.String()))
				}
				return nil
			}
			l.dispatch(sig)
		}
	}
}

// Stop unblocks a running Loop without waiting for a terminal signal.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// RaiseL3 sends the L3 IRQ to this process, the mechanism a link device
// uses after enqueuing a frame to wake the protocol dispatcher on its
// next signal-loop iteration.
func (l *Loop) RaiseL3() {
	unix.Kill(os.Getpid(), syscall.Signal(l.l3IRQ))
}

func (l *Loop) isTerminal(sig os.Signal) bool {
	for _, t := range terminalSignals {
		if sig == t {
			return true
		}
	}
	return false
}

func (l *Loop) dispatch(sig os.Signal) {
	s := int(sig.(syscall.Signal))
	if s == l.l3IRQ {
		l.onL3()
		return
	}
	if err := l.onDevice(s); err != nil && l.Log != nil {
		l.Log.Error("irq: device dispatch failed", slog.Int("irq", s), slog.String("err", err.Error()))
	}
}
