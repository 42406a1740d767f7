//go:build linux

package device

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/tavonet/netstack/ethernet"
)

// BridgeDriver attaches to a real host NIC via an AF_PACKET/SOCK_RAW socket
// instead of a TAP device, letting the stack exchange frames directly on a
// physical or virtual Ethernet link without a kernel-assigned IP stack
// fighting over the same interface.
type BridgeDriver struct {
	Log   *slog.Logger
	Iface string

	mu sync.Mutex
	fd int
}

// NewBridge returns a Device backed by a raw AF_PACKET socket bound to the
// host interface named ifaceName.
func NewBridge(index int, ifaceName string, mtu int, irq int, onRecv ReceiveFunc, log *slog.Logger) *Device {
	drv := &BridgeDriver{Iface: ifaceName, Log: log, fd: -1}
	hw, _ := interfaceHardwareAddr(ifaceName)
	d := New(index, ifaceName, TypeEthernet, mtu, hw, drv, onRecv)
	d.IRQ = irq
	return d
}

func interfaceHardwareAddr(name string) ([6]byte, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return [6]byte{}, err
	}
	var out [6]byte
	copy(out[:], ifi.HardwareAddr)
	return out, nil
}

func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

func (b *BridgeDriver) Open(d *Device) error {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return fmt.Errorf("bridge: socket: %w", err)
	}
	ifi, err := net.InterfaceByName(b.Iface)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("bridge: %w", err)
	}
	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("bridge: bind: %w", err)
	}
	b.mu.Lock()
	b.fd = fd
	b.mu.Unlock()
	return nil
}

func (b *BridgeDriver) Close(d *Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

func (b *BridgeDriver) Send(d *Device, dst [6]byte, ethertype ethernet.Type, payload []byte) error {
	frameLen := ethernet.MinFrameLength
	if l := (ethernet.Frame{}).HeaderLength() + len(payload); l > frameLen {
		frameLen = l
	}
	buf := make([]byte, frameLen)
	efrm, err := ethernet.BuildHeader(buf, dst, d.hw, ethertype)
	if err != nil {
		return err
	}
	copy(efrm.Payload(), payload)

	b.mu.Lock()
	fd := b.fd
	b.mu.Unlock()
	if fd < 0 {
		return ErrDeviceDown
	}
	_, err = unix.Write(fd, buf)
	return err
}

// Read blocks reading one frame off the raw socket; invoked by the owning
// signal-loop goroutine when this device's IRQ fires.
func (b *BridgeDriver) Read(d *Device) error {
	b.mu.Lock()
	fd := b.fd
	b.mu.Unlock()
	if fd < 0 {
		return ErrDeviceDown
	}
	buf := make([]byte, d.MTU+ethernet.MinFrameLength)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return fmt.Errorf("bridge: read: %w", err)
	}
	efrm, err := ethernet.NewFrame(buf[:n])
	if err != nil {
		return err
	}
	if err := efrm.Accept(d.hw); err != nil {
		return nil
	}
	switch et := efrm.EtherType(); et {
	case ethernet.TypeIPv4, ethernet.TypeARP:
		d.deliver(et, efrm.Payload())
	}
	return nil
}

// Service reads one frame off the raw socket, matching the Driver
// interface the registry dispatches IRQs through.
func (b *BridgeDriver) Service(d *Device) error {
	return b.Read(d)
}
