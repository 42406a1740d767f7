package udp

import (
	"bytes"
	"testing"

	"github.com/tavonet/netstack"
)

func TestChecksumRoundTrip(t *testing.T) {
	src := [4]byte{127, 0, 0, 1}
	dst := [4]byte{127, 0, 0, 1}
	payload := []byte("hi")

	var sent []byte
	send := func(proto netstack.IPProto, data []byte, s, d [4]byte) error {
		sent = data
		return nil
	}

	err := Send(send, Endpoint{Addr: src, Port: 8000}, Endpoint{Addr: dst, Port: 8001}, payload)
	if err != nil {
		t.Fatal(err)
	}

	ufrm, err := NewFrame(sent)
	if err != nil {
		t.Fatal(err)
	}
	var v netstack.Validator
	ufrm.ValidatePseudo(&v, src, dst)
	if v.HasError() {
		t.Fatalf("expected valid checksum, got %v", v.Err())
	}
	if !bytes.Equal(ufrm.Payload(), payload) {
		t.Fatalf("expected payload %q, got %q", payload, ufrm.Payload())
	}
}

func TestSendRejectsOversizePayload(t *testing.T) {
	send := func(proto netstack.IPProto, data []byte, s, d [4]byte) error { return nil }
	big := make([]byte, IPv4PayloadMax)
	err := Send(send, Endpoint{Port: 1}, Endpoint{Port: 2}, big)
	if err != errTooLong {
		t.Fatalf("expected errTooLong, got %v", err)
	}
}

func TestRecvRejectsBadChecksum(t *testing.T) {
	table := NewTable()
	if _, err := table.Bind(Endpoint{Addr: Any, Port: 9000}); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, sizeHeader+2)
	ufrm, err := Build(buf, 1234, 9000, []byte("hi"))
	if err != nil {
		t.Fatal(err)
	}
	ufrm.SetCRC(0x1234) // deliberately wrong

	if err := Recv(table, nil, [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, buf); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := table.Receive(0); ok {
		t.Fatal("expected no datagram queued for a bad checksum")
	}
}
