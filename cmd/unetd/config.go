package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/netip"
)

// Config carries every knob unetd accepts from the command line: the TAP
// interface to create, the address to assign it, an optional default
// gateway, and the loopback subnet every stack always gets.
type Config struct {
	TapName       string
	TapMTU        int
	TapCIDR       string
	Gateway       string
	LoopbackCIDR  string
	LoopbackOnly  bool
	PacketCapture bool
	LogLevel      slog.Level
}

// ParseFlags populates a Config from the process's command-line flags.
func ParseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("unetd", flag.ContinueOnError)
	cfg := Config{}
	var logLevel string
	fs.StringVar(&cfg.TapName, "tap", "tap0", "TAP interface name")
	fs.IntVar(&cfg.TapMTU, "mtu", 1500, "TAP device MTU")
	fs.StringVar(&cfg.TapCIDR, "addr", "192.168.10.1/24", "address/prefix assigned to the TAP interface")
	fs.StringVar(&cfg.Gateway, "gateway", "", "default gateway address, routed via the TAP interface (optional)")
	fs.StringVar(&cfg.LoopbackCIDR, "loopback-addr", "127.0.0.1/8", "address/prefix assigned to the loopback interface")
	fs.BoolVar(&cfg.LoopbackOnly, "loopback-only", false, "skip the TAP device entirely, run loopback ICMP/UDP only")
	fs.BoolVar(&cfg.PacketCapture, "pcap", false, "log every transmitted frame at debug level")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	switch logLevel {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return Config{}, fmt.Errorf("unetd: unknown log level %q", logLevel)
	}
	return cfg, nil
}

// parsePrefix splits a "a.b.c.d/n" string into its address and netmask.
func parsePrefix(cidr string) (addr, netmask [4]byte, err error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return addr, netmask, err
	}
	if !prefix.Addr().Is4() {
		return addr, netmask, fmt.Errorf("unetd: %q is not an IPv4 prefix", cidr)
	}
	addr = prefix.Addr().As4()
	bits := prefix.Bits()
	for i := 0; i < bits; i++ {
		netmask[i/8] |= 1 << (7 - i%8)
	}
	return addr, netmask, nil
}
