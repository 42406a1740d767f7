//go:build linux

package device

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/tavonet/netstack/ethernet"
	"github.com/tavonet/netstack/internal"
)

const tunPath = "/dev/net/tun"

// fSetSig mirrors the original stack's use of F_SETSIG with a custom
// signal number instead of SIGIO: the caller picks one real-time signal per
// TAP device and the kernel delivers it on every readable/writable event.
const fSetSig = 10

// TapDriver opens a Linux TAP character device, configures it for
// asynchronous I/O delivered as a real-time signal, and exposes blocking
// Read/Write for the owning Device's IRQ handler and Send path.
type TapDriver struct {
	Log *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// NewTap returns a Device backed by a TAP interface named ifname. hwAddr may
// be the zero value, in which case Open queries the kernel for the
// interface's assigned MAC address after creation.
func NewTap(index int, ifname string, mtu int, hwAddr [6]byte, irq int, onRecv ReceiveFunc, log *slog.Logger) *Device {
	drv := &TapDriver{Log: log}
	d := New(index, ifname, TypeEthernet, mtu, hwAddr, drv, onRecv)
	d.IRQ = irq
	return d
}

func (t *TapDriver) Open(d *Device) error {
	f, err := os.OpenFile(tunPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("tap: open %s: %w", tunPath, err)
	}
	fd := int(f.Fd())

	var ifr unix.Ifreq
	ifr.SetName(d.Name)
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, &ifr); err != nil {
		f.Close()
		return fmt.Errorf("tap: TUNSETIFF: %w", err)
	}

	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETOWN, os.Getpid()); err != nil {
		f.Close()
		return fmt.Errorf("tap: F_SETOWN: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, unix.O_ASYNC); err != nil {
		f.Close()
		return fmt.Errorf("tap: F_SETFL O_ASYNC: %w", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), fSetSig, d.IRQ); err != nil {
		f.Close()
		return fmt.Errorf("tap: F_SETSIG: %w", err)
	}

	t.mu.Lock()
	t.file = f
	t.mu.Unlock()

	if internal.IsZeroed(d.hw[:]...) {
		hw, err := queryHardwareAddr(d.Name)
		if err != nil {
			return fmt.Errorf("tap: querying hardware addr: %w", err)
		}
		d.hw = hw
		if t.Log != nil {
			t.Log.Info("tap: learned hardware address", slog.String("device", d.Name), internal.SlogAddr6("hwaddr", &hw))
		}
	}
	return nil
}

func (t *TapDriver) Close(d *Device) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func (t *TapDriver) Send(d *Device, dst [6]byte, ethertype ethernet.Type, payload []byte) error {
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

	t.mu.Lock()
	f := t.file
	t.mu.Unlock()
	if f == nil {
		return ErrDeviceDown
	}
	_, err = f.Write(buf)
	return err
}

// Read blocks reading one frame off the TAP fd; invoked by the owning
// signal-loop goroutine when this device's IRQ fires. It decodes the
// Ethernet header, filters on destination address, and delivers the payload
// to the device's onRecv callback.
func (t *TapDriver) Read(d *Device) error {
	t.mu.Lock()
	f := t.file
	t.mu.Unlock()
	if f == nil {
		return ErrDeviceDown
	}
	buf := make([]byte, d.MTU+ethernet.MinFrameLength)
	n, err := f.Read(buf)
	if err != nil {
		return fmt.Errorf("tap: read: %w", err)
	}
	efrm, err := ethernet.NewFrame(buf[:n])
	if err != nil {
		return err
	}
	if err := efrm.Accept(d.hw); err != nil {
		if t.Log != nil {
			t.Log.Debug("tap: dropping frame not addressed to us", slog.String("device", d.Name))
		}
		return nil
	}
	et := efrm.EtherType()
	switch et {
	case ethernet.TypeIPv4, ethernet.TypeARP:
		d.deliver(et, efrm.Payload())
	default:
		if t.Log != nil {
			t.Log.Debug("tap: dropping unsupported ethertype", slog.String("device", d.Name))
		}
	}
	return nil
}

// Service reads one frame off the TAP fd, matching the Driver interface
// the registry dispatches IRQs through.
func (t *TapDriver) Service(d *Device) error {
	return t.Read(d)
}

// queryHardwareAddr asks the kernel for ifname's MAC address via a
// throwaway AF_INET/SOCK_DGRAM socket and SIOCGIFHWADDR, the same mechanism
// used to assign a host NIC's MAC to its matching TAP peer.
func queryHardwareAddr(ifname string) ([6]byte, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return [6]byte{}, err
	}
	defer unix.Close(fd)

	var ifr unix.Ifreq
	ifr.SetName(ifname)
	if err := unix.IoctlIfreq(fd, unix.SIOCGIFHWADDR, &ifr); err != nil {
		return [6]byte{}, err
	}
	hw, err := ifr.HardwareAddr()
	if err != nil {
		return [6]byte{}, err
	}
	var out [6]byte
	copy(out[:], hw)
	return out, nil
}
