//go:build linux

// Package stack wires the device registry, the software-interrupt plane,
// ARP, IPv4 routing and the transport layers (ICMP, UDP) into a single
// runnable protocol stack: the process-wide ProtocolStackContext described
// by the design, minus the process entry point and CLI glue that own it.
package stack

import (
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tavonet/netstack"
	"github.com/tavonet/netstack/arp"
	"github.com/tavonet/netstack/device"
	"github.com/tavonet/netstack/ethernet"
	"github.com/tavonet/netstack/ipv4"
	"github.com/tavonet/netstack/ipv4/icmpv4"
	"github.com/tavonet/netstack/irq"
	"github.com/tavonet/netstack/udp"
)

// Stack is the process-wide protocol stack context: the router, ARP
// cache, packet-ID generator and UDP bind table live here for the
// lifetime of the process, alongside the device registry and the
// interrupt plane that drives them.
type Stack struct {
	Log      *slog.Logger
	Registry *device.Registry
	Router   *ipv4.Router
	ARP      *arp.Cache
	IDGen    *ipv4.IDGenerator
	UDP      *udp.Table
	Stats    Stats

	ifaces    []*ipv4.Interface
	ipv4Queue irq.Queue
	arpQueue  irq.Queue
	loopbacks []*device.LoopbackDriver
	loop      *irq.Loop
}

// New returns an empty Stack. Devices and interfaces are attached with
// AddNull/AddLoopback/AddTap and AttachInterface, routes with
// Router.Register/RegisterDefault, and the whole thing made runnable with
// Finalize.
func New(log *slog.Logger) *Stack {
	return &Stack{
		Log:      log,
		Registry: &device.Registry{},
		Router:   &ipv4.Router{},
		ARP:      arp.NewCache(),
		IDGen:    &ipv4.IDGenerator{},
		UDP:      udp.NewTable(),
	}
}

// AttachInterface adds iface to the stack's interface list: the strong
// device→interface ownership the design calls for, realized here at the
// stack level rather than inside device.Device, since the device package
// cannot import ipv4 without a cycle (ipv4 already imports device). Each
// Interface still holds only a weak back-reference to its device.
func (s *Stack) AttachInterface(iface *ipv4.Interface) {
	s.ifaces = append(s.ifaces, iface)
}

// InterfaceFor returns the interface attached to dev, if any. The stack
// treats a device as carrying at most one IPv4 interface; AttachInterface
// does not check this, and if several are attached the first one is
// returned.
func (s *Stack) InterfaceFor(dev *device.Device) (*ipv4.Interface, bool) {
	for _, iface := range s.ifaces {
		if d, ok := iface.Device(); ok && d == dev {
			return iface, true
		}
	}
	return nil, false
}

// AddNull registers a null sink device, matching the original stack's
// always-present discard device.
func (s *Stack) AddNull(name string) *device.Device {
	d := device.NewNull(len(s.Registry.Devices()), name, s.Log)
	s.Registry.Add(d)
	return d
}

// AddLoopback registers an in-memory loopback device. Its IRQ number is
// assigned by Finalize, once every device is known.
func (s *Stack) AddLoopback(name string) *device.Device {
	idx := len(s.Registry.Devices())
	d, drv := device.NewLoopback(idx, name, -1, s.onRecv)
	s.Registry.Add(d)
	s.loopbacks = append(s.loopbacks, drv)
	return d
}

// onRecv is the ReceiveFunc every device is constructed with: it enqueues
// the decoded frame on the queue matching its EtherType and wakes the L3
// dispatcher, mirroring the original stack's device→protocol-queue
// hand-off.
func (s *Stack) onRecv(dev *device.Device, ethertype ethernet.Type, payload []byte) {
	s.Stats.FramesIn.Add(1)
	entry := irq.Entry{Payload: payload, Device: dev}
	switch ethertype {
	case ethernet.TypeIPv4:
		s.ipv4Queue.Push(entry)
	case ethernet.TypeARP:
		s.arpQueue.Push(entry)
	default:
		return
	}
	if s.loop != nil {
		s.loop.RaiseL3()
	}
}

// Finalize assigns IRQ numbers to every registered device plus the L3
// IRQ, wires each loopback driver's Raise callback to raise its own
// device's IRQ, and builds the signal loop. Call it once, after every
// device has been added, and before Run.
func (s *Stack) Finalize() {
	devices := s.Registry.Devices()
	deviceIRQs, l3IRQ := irq.AllocateIRQs(len(devices))
	lb := 0
	for i, d := range devices {
		d.IRQ = deviceIRQs[i]
		// Loopback devices are registered only by AddLoopback, in the same
		// order as s.loopbacks.
		if d.Link == device.TypeLoopback && lb < len(s.loopbacks) {
			sig := syscall.Signal(d.IRQ)
			s.loopbacks[lb].Raise = func() { unix.Kill(os.Getpid(), sig) }
			lb++
		}
	}
	s.loop = irq.NewLoop(deviceIRQs, l3IRQ, s.serviceDeviceIRQ, s.drainL3, s.Log)
}

func (s *Stack) serviceDeviceIRQ(irqNum int) error {
	return s.Registry.HandleIRQ(irqNum, func(d *device.Device) error {
		return d.ServiceIRQ()
	})
}

// drainL3 is the L3 IRQ handler: it drains every non-empty protocol queue,
// in whatever order they happen to be visited — the design leaves
// relative order across queues within one cycle unspecified.
func (s *Stack) drainL3() {
	s.ipv4Queue.Drain(s.handleIPv4Entry)
	s.arpQueue.Drain(s.handleARPEntry)
}

func (s *Stack) handleIPv4Entry(e irq.Entry) {
	dev := e.Device.(*device.Device)
	iface, ok := s.InterfaceFor(dev)
	if !ok {
		s.logDrop("ipv4: no interface attached to device", dev.Name)
		return
	}
	dispatch := ipv4.Dispatch{
		ICMP: s.recvICMP,
		UDP:  s.recvUDP,
		Log:  s.Log,
	}
	if err := dispatch.Recv(iface, e.Payload); err != nil && s.Log != nil {
		s.Log.Error("ipv4: recv failed", slog.String("err", err.Error()))
	}
}

func (s *Stack) handleARPEntry(e irq.Entry) {
	dev := e.Device.(*device.Device)
	iface, ok := s.InterfaceFor(dev)
	if !ok {
		s.logDrop("arp: no interface attached to device", dev.Name)
		return
	}
	afrm, err := arp.NewFrame(e.Payload)
	if err != nil {
		s.logDrop("arp: decode", err.Error())
		return
	}
	var v netstack.Validator
	afrm.ValidateSize(&v)
	if v.HasError() {
		s.logDrop("arp: validate", v.Err().Error())
		return
	}
	switch afrm.Operation() {
	case arp.OpRequest:
		s.Stats.ARPRequests.Add(1)
	case arp.OpReply:
		s.Stats.ARPReplies.Add(1)
	}
	if err := arp.Recv(s.ARP, dev, dev.HardwareAddr(), iface.Unicast, afrm, s.Log); err != nil && s.Log != nil {
		s.Log.Error("arp: recv failed", slog.String("err", err.Error()))
	}
}

func (s *Stack) logDrop(stage, detail string) {
	s.Stats.Drops.Add(1)
	if s.Log == nil {
		return
	}
	s.Log.Debug("stack: dropping frame", slog.String("stage", stage), slog.String("detail", detail))
}

// sendIPv4 adapts ipv4.Send to the IPv4Sender shape the transport layers
// call back through.
func (s *Stack) sendIPv4(proto netstack.IPProto, data []byte, src, dst [4]byte) error {
	err := ipv4.Send(s.Router, s.ARP, s.IDGen, proto, data, src, dst)
	if err == nil {
		s.Stats.FramesOut.Add(1)
	}
	return err
}

func (s *Stack) recvICMP(iface *ipv4.Interface, src, dst [4]byte, payload []byte) error {
	return icmpv4.Recv(s.sendIPv4, s.Log, src, dst, payload)
}

func (s *Stack) recvUDP(iface *ipv4.Interface, src, dst [4]byte, payload []byte) error {
	return udp.Recv(s.UDP, s.Log, src, dst, payload)
}

// SendICMPEcho builds and sends an ICMP echo request from src to dst.
func (s *Stack) SendICMPEcho(src, dst [4]byte, identifier, sequence uint16, data []byte) error {
	buf := make([]byte, 8+len(data))
	frm, err := icmpv4.BuildEcho(buf, icmpv4.TypeEcho, 0, identifier, sequence, data)
	if err != nil {
		return err
	}
	return s.sendIPv4(netstack.IPProtoICMP, frm.RawData(), src, dst)
}

// BindUDP reserves a UDP bind-table slot for local.
func (s *Stack) BindUDP(local udp.Endpoint) (int, error) {
	return s.UDP.Bind(local)
}

// SendUDP composes and sends a UDP datagram from src to dst.
func (s *Stack) SendUDP(src, dst udp.Endpoint, payload []byte) error {
	return udp.Send(s.sendIPv4, src, dst, payload)
}

// ReceiveUDP pops the oldest datagram queued for bind-table slot slot.
func (s *Stack) ReceiveUDP(slot int) (udp.Endpoint, []byte, bool) {
	return s.UDP.Receive(slot)
}

// Run opens every device and blocks servicing IRQs until Stop is called
// or a terminal signal arrives, then closes every device in list order.
// Call Finalize first.
func (s *Stack) Run() error {
	if err := s.Registry.OpenAll(); err != nil {
		return err
	}
	err := s.loop.Run()
	if closeErr := s.Registry.CloseAll(); err == nil {
		err = closeErr
	}
	return err
}

// Stop unblocks a running Run without waiting for a terminal signal.
func (s *Stack) Stop() {
	if s.loop != nil {
		s.loop.Stop()
	}
}
