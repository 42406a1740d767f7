package ipv4

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tavonet/netstack"
)

func TestFrame(t *testing.T) {
	var buf [1024]byte

	ifrm, err := NewFrame(buf[:])
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	const wantVersion = 4
	v := new(netstack.Validator)
	for i := 0; i < 100; i++ {
		wantToS := ToS(rng.Intn(4))
		ifrm.SetVersionAndIHL(wantVersion, 5)
		wantPayloadLen := rng.Intn(6)
		ifrm.SetToS(wantToS)
		wantTotalLength := uint16(sizeHeader + wantPayloadLen)
		ifrm.SetTotalLength(wantTotalLength)
		wantID := uint16(rng.Intn(math.MaxUint16))
		ifrm.SetID(wantID)
		ifrm.SetFlags(0)
		wantTTL := uint8(rng.Intn(256))
		ifrm.SetTTL(wantTTL)
		wantProtocol := netstack.IPProto(rng.Intn(256))
		ifrm.SetProtocol(wantProtocol)
		wantCRC := uint16(rng.Intn(math.MaxUint16))
		ifrm.SetCRC(wantCRC)
		src := ifrm.SourceAddr()
		rng.Read(src[:])
		wantSrc := *src
		dst := ifrm.DestinationAddr()
		rng.Read(dst[:])
		wantDst := *dst

		v.ResetErr()
		ifrm.ValidateSize(v)
		if v.Err() != nil {
			t.Error(v.Err())
		}

		payload := ifrm.Payload()
		payloadOff := sizeHeader
		wantPayload := buf[payloadOff : payloadOff+wantPayloadLen]
		if len(payload) != wantPayloadLen {
			t.Errorf("want payload length %d, got %d", wantPayloadLen, len(payload))
		}
		if len(payload) > 0 && &wantPayload[0] != &payload[0] {
			t.Error("first byte of payload unexpected pointer")
		}
		if len(payload) > 0 {
			payload[0] = byte(rng.Int())
		}

		if ver, ihl := ifrm.VersionAndIHL(); ver != wantVersion || ihl != 5 {
			t.Errorf("wanted IHL 5, got version,IHL %d,%d ", ver, ihl)
		}
		if tos := ifrm.ToS(); tos != wantToS {
			t.Errorf("wanted ToS %d, got %d", wantToS, tos)
		}
		if tl := ifrm.TotalLength(); tl != wantTotalLength {
			t.Errorf("wanted total length %d, got %d", wantTotalLength, tl)
		}
		if id := ifrm.ID(); id != wantID {
			t.Errorf("want ID %d, got %d", wantID, id)
		}
		if ttl := ifrm.TTL(); ttl != wantTTL {
			t.Errorf("want TTL %d, got %d", wantTTL, ttl)
		}
		if proto := ifrm.Protocol(); proto != wantProtocol {
			t.Errorf("want protocol %d, got %d", wantProtocol, proto)
		}
		if crc := ifrm.CRC(); crc != wantCRC {
			t.Errorf("want crc %d, got %d", wantCRC, crc)
		}
		if wantDst != *dst {
			t.Errorf("want dst addr %v, got %v", wantDst, dst)
		}
		if wantSrc != *src {
			t.Errorf("want src addr %v, got %v", wantSrc, src)
		}
	}
}

func TestBuildRoundTrip(t *testing.T) {
	var buf [64]byte
	data := []byte("hello world")
	ifrm, err := Build(buf[:sizeHeader+len(data)], 7, netstack.IPProtoUDP, 64, uint16(sizeHeader+len(data)), [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2})
	if err != nil {
		t.Fatal(err)
	}
	copy(ifrm.Payload(), data)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	var v netstack.Validator
	ifrm.Validate(&v)
	if v.HasError() {
		t.Fatalf("expected valid header, got %v", v.Err())
	}
	if string(ifrm.Payload()) != string(data) {
		t.Fatalf("payload mismatch: %q", ifrm.Payload())
	}
}

func TestValidateRejectsFragmented(t *testing.T) {
	var buf [sizeHeader]byte
	ifrm, err := Build(buf[:], 1, netstack.IPProtoICMP, 64, sizeHeader, [4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	ifrm.SetFlags(Flags(0x2000)) // MF set
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	var v netstack.Validator
	ifrm.Validate(&v)
	if !v.HasError() {
		t.Fatal("expected fragmented packet to be rejected")
	}
}

func TestValidateRejectsTruncatedBuffer(t *testing.T) {
	var buf [sizeHeader]byte
	ifrm, err := Build(buf[:], 1, netstack.IPProtoICMP, 64, sizeHeader+10, [4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	var v netstack.Validator
	ifrm.Validate(&v)
	if !v.HasError() {
		t.Fatal("expected truncated capture (total_length > buffer) to be rejected")
	}
}
