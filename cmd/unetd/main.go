//go:build linux

// Command unetd runs a userspace Ethernet/ARP/IPv4/ICMP/UDP stack over a
// TAP device (or loopback only, with -loopback-only), answering ICMP echo
// requests and routing UDP datagrams to whatever the process binds.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/tavonet/netstack/ipv4"
	"github.com/tavonet/netstack/stack"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalln("unetd:", err)
	}
}

func run(args []string) error {
	cfg, err := ParseFlags(args)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	s := stack.New(logger)

	loAddr, loMask, err := parsePrefix(cfg.LoopbackCIDR)
	if err != nil {
		return fmt.Errorf("loopback address: %w", err)
	}
	lo := s.AddLoopback("lo")
	loIface := ipv4.NewInterface(loAddr, loMask, lo)
	s.AttachInterface(loIface)
	s.Router.Register(and4(loAddr, loMask), loIface)

	if !cfg.LoopbackOnly {
		tapAddr, tapMask, err := parsePrefix(cfg.TapCIDR)
		if err != nil {
			return fmt.Errorf("tap address: %w", err)
		}
		tap := s.AddTap(cfg.TapName, cfg.TapMTU, [6]byte{}, cfg.PacketCapture)
		tapIface := ipv4.NewInterface(tapAddr, tapMask, tap)
		s.AttachInterface(tapIface)
		s.Router.Register(and4(tapAddr, tapMask), tapIface)

		if cfg.Gateway != "" {
			gw, _, err := parsePrefix(cfg.Gateway + "/32")
			if err != nil {
				return fmt.Errorf("gateway address: %w", err)
			}
			s.Router.RegisterDefault(tapIface, gw)
		}
	}

	s.Finalize()
	logger.Info("unetd: starting",
		slog.String("tap", cfg.TapName), slog.Bool("loopback_only", cfg.LoopbackOnly))
	return s.Run()
}

func and4(addr, mask [4]byte) [4]byte {
	var out [4]byte
	for i := range out {
		out[i] = addr[i] & mask[i]
	}
	return out
}
