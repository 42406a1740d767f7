package arp

import (
	"testing"
	"time"

	"github.com/tavonet/netstack"
	"github.com/tavonet/netstack/ethernet"
)

type fakeSender struct {
	sent []sentFrame
}

type sentFrame struct {
	dst       [6]byte
	ethertype ethernet.Type
	payload   []byte
}

func (f *fakeSender) Send(dst [6]byte, ethertype ethernet.Type, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.sent = append(f.sent, sentFrame{dst: dst, ethertype: ethertype, payload: cp})
	return nil
}

var (
	hwA = [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	ipA = [4]byte{192, 168, 1, 1}
	hwB = [6]byte{0xc0, 0xff, 0xee, 0xc0, 0xff, 0x02}
	ipB = [4]byte{192, 168, 1, 2}
)

func TestResolveAbsentSendsRequest(t *testing.T) {
	c := NewCache()
	s := &fakeSender{}

	entry, err := Resolve(c, s, hwA, ipA, ipB)
	if err != nil {
		t.Fatal(err)
	}
	if entry.State != Incomplete {
		t.Fatalf("expected Incomplete, got %s", entry.State)
	}
	if len(s.sent) != 1 {
		t.Fatalf("expected 1 request sent, got %d", len(s.sent))
	}
	if s.sent[0].dst != BroadcastAddr {
		t.Fatalf("request should be broadcast, got %x", s.sent[0].dst)
	}

	afrm, err := NewFrame(s.sent[0].payload)
	if err != nil {
		t.Fatal(err)
	}
	if afrm.Operation() != OpRequest {
		t.Fatalf("expected OpRequest, got %s", afrm.Operation())
	}
	sh, sp := afrm.Sender4()
	if *sh != hwA || *sp != ipA {
		t.Fatalf("unexpected sender fields: %x %v", sh, sp)
	}
}

func TestResolveIncompleteThrottlesRetries(t *testing.T) {
	c := NewCache()
	s := &fakeSender{}

	oldNow := now
	defer func() { now = oldNow }()
	fakeTime := time.Unix(1000, 0)
	now = func() time.Time { return fakeTime }

	if _, err := Resolve(c, s, hwA, ipA, ipB); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(c, s, hwA, ipA, ipB); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("expected retry to be throttled, got %d sends", len(s.sent))
	}

	fakeTime = fakeTime.Add(2 * time.Second)
	if _, err := Resolve(c, s, hwA, ipA, ipB); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 2 {
		t.Fatalf("expected retry after interval elapsed, got %d sends", len(s.sent))
	}
}

func TestRecvRequestRepliesAndCaches(t *testing.T) {
	c := NewCache()
	s := &fakeSender{}

	var buf [sizeHeaderv4]byte
	afrm, err := Build(buf[:], OpRequest, hwB, ipB, [6]byte{}, ipA)
	if err != nil {
		t.Fatal(err)
	}
	if err := Recv(c, s, hwA, ipA, afrm, nil); err != nil {
		t.Fatal(err)
	}

	entry, ok := c.Lookup(ipB)
	if !ok || entry.State != Resolved || entry.HardwareAddr != hwB {
		t.Fatalf("expected sender cached as resolved, got %+v ok=%v", entry, ok)
	}

	if len(s.sent) != 1 {
		t.Fatalf("expected a reply, got %d sends", len(s.sent))
	}
	replyFrm, err := NewFrame(s.sent[0].payload)
	if err != nil {
		t.Fatal(err)
	}
	if replyFrm.Operation() != OpReply {
		t.Fatalf("expected OpReply, got %s", replyFrm.Operation())
	}
	if s.sent[0].dst != hwB {
		t.Fatalf("expected unicast reply to requester, got %x", s.sent[0].dst)
	}
}

func TestRecvReplyResolvesWithoutSending(t *testing.T) {
	c := NewCache()
	s := &fakeSender{}

	var buf [sizeHeaderv4]byte
	afrm, err := Build(buf[:], OpReply, hwB, ipB, hwA, ipA)
	if err != nil {
		t.Fatal(err)
	}
	if err := Recv(c, s, hwA, ipA, afrm, nil); err != nil {
		t.Fatal(err)
	}

	entry, ok := c.Lookup(ipB)
	if !ok || entry.State != Resolved || entry.HardwareAddr != hwB {
		t.Fatalf("expected sender cached as resolved, got %+v ok=%v", entry, ok)
	}
	if len(s.sent) != 0 {
		t.Fatalf("expected no reply to a reply, got %d sends", len(s.sent))
	}
}

func TestRecvIgnoresForeignTarget(t *testing.T) {
	c := NewCache()
	s := &fakeSender{}
	foreign := [4]byte{10, 0, 0, 9}

	var buf [sizeHeaderv4]byte
	afrm, err := Build(buf[:], OpRequest, hwB, ipB, [6]byte{}, foreign)
	if err != nil {
		t.Fatal(err)
	}
	if err := Recv(c, s, hwA, ipA, afrm, nil); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 0 {
		t.Fatalf("expected no reply for request not addressed to us, got %d", len(s.sent))
	}
	if _, ok := c.Lookup(ipB); ok {
		t.Fatal("sender should not be cached from traffic not addressed to us")
	}
}

func TestValidateSizeRejectsShortAndForeignFamily(t *testing.T) {
	var v netstack.Validator
	short := make([]byte, 4)
	frm := Frame{buf: short}
	frm.ValidateSize(&v)
	if !v.HasError() {
		t.Fatal("expected error for short buffer")
	}

	v.ResetErr()
	var buf [sizeHeaderv4]byte
	afrm, err := Build(buf[:], OpRequest, hwA, ipA, [6]byte{}, ipB)
	if err != nil {
		t.Fatal(err)
	}
	afrm.SetHardware(6, HardwareAddrLengthEthernet) // bogus hardware type
	afrm.ValidateSize(&v)
	if !v.HasError() {
		t.Fatal("expected error for unsupported hardware type")
	}
}
