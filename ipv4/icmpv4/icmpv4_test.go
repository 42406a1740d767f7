package icmpv4

import (
	"bytes"
	"testing"

	"github.com/tavonet/netstack"
)

func TestChecksumInvolution(t *testing.T) {
	data := []byte("31323334353637383930")
	buf := make([]byte, sizeHeader+len(data))
	frm, err := BuildEcho(buf, TypeEcho, 0, 0x35, 1, data)
	if err != nil {
		t.Fatal(err)
	}
	if netstack.Checksum(frm.RawData(), 0) != 0 {
		t.Fatal("checksum should validate to zero over a correctly-stamped message")
	}
}

func TestEchoRecvRepliesWithSwappedAddrs(t *testing.T) {
	data := []byte("abcdefgh")
	buf := make([]byte, sizeHeader+len(data))
	frm, err := BuildEcho(buf, TypeEcho, 0, 7, 3, data)
	if err != nil {
		t.Fatal(err)
	}

	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	var gotProto netstack.IPProto
	var gotData []byte
	var gotSrc, gotDst [4]byte
	send := func(proto netstack.IPProto, payload []byte, s, d [4]byte) error {
		gotProto, gotData, gotSrc, gotDst = proto, payload, s, d
		return nil
	}

	if err := Recv(send, nil, src, dst, frm.RawData()); err != nil {
		t.Fatal(err)
	}
	if gotProto != netstack.IPProtoICMP {
		t.Fatalf("expected ICMP send, got %s", gotProto)
	}
	if gotSrc != dst || gotDst != src {
		t.Fatalf("expected addresses swapped, got src=%v dst=%v", gotSrc, gotDst)
	}

	reply, err := NewFrame(gotData)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Type() != TypeEchoReply {
		t.Fatalf("expected EchoReply, got %s", reply.Type())
	}
	if reply.Identifier() != 7 || reply.SequenceNumber() != 3 {
		t.Fatalf("expected identifier/sequence copied, got %d/%d", reply.Identifier(), reply.SequenceNumber())
	}
	if !bytes.Equal(reply.Data(), data) {
		t.Fatalf("expected payload copied, got %q", reply.Data())
	}
}

func TestRecvIgnoresNonEcho(t *testing.T) {
	buf := make([]byte, sizeHeader)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	frm.SetType(TypeEchoReply)
	frm.SetCRC(frm.Checksum())

	called := false
	send := func(proto netstack.IPProto, payload []byte, s, d [4]byte) error {
		called = true
		return nil
	}
	if err := Recv(send, nil, [4]byte{}, [4]byte{}, frm.RawData()); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("expected no reply to a non-echo message")
	}
}
