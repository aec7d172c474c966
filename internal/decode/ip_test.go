package decode

import (
	"net/netip"
	"testing"
)

// The version nibble decides the path: a packet starting with 6 is
// parsed as IPv6 even when it enters through decodeIP, whatever link
// type delivered it.
func TestDecodeIPRedirectsVersion6(t *testing.T) {
	src := [16]byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	dst := [16]byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}
	data := ipv6UDPPacket(src, dst, 1024, 53)

	e, _ := newTestEngine(Config{})
	var sm Summary
	e.decodeIP(data, &sm)

	if !sm.Src.Is6() || !sm.Dst.Is6() {
		t.Fatalf("Expected 16-byte addresses, got %v -> %v", sm.Src, sm.Dst)
	}
	if want := netip.AddrFrom16(src); sm.Src != want {
		t.Errorf("Expected Src %v, got %v", want, sm.Src)
	}
	if sm.Proto != ProtoUDP {
		t.Errorf("Expected Proto %d (UDP), got %d", ProtoUDP, sm.Proto)
	}
}

func TestDecodeIPShortHeader(t *testing.T) {
	e, _ := newTestEngine(Config{})
	var sm Summary
	e.decodeIP(make([]byte, IPv4HdrLen-1), &sm)

	if sm.Proto != ProtoInvalid {
		t.Errorf("Expected ProtoInvalid, got %d", sm.Proto)
	}
	if sm.Src.IsValid() {
		t.Errorf("Expected no source address, got %v", sm.Src)
	}
}

func TestDecodeIPBadVersion(t *testing.T) {
	data := make([]byte, IPv4HdrLen)
	data[0] = 0x55 // version 5

	e, _ := newTestEngine(Config{})
	var sm Summary
	e.decodeIP(data, &sm)

	if sm.Proto != ProtoInvalid {
		t.Errorf("Expected ProtoInvalid, got %d", sm.Proto)
	}
}

func TestDecodeIPEmpty(t *testing.T) {
	e, _ := newTestEngine(Config{})
	var sm Summary
	e.decodeIP(nil, &sm)

	if sm.Proto != ProtoInvalid {
		t.Errorf("Expected ProtoInvalid, got %d", sm.Proto)
	}
}

// Len must hold the total length including the fixed IPv6 header, not
// the payload-only value of the wire field.
func TestDecodeIPv6TotalLength(t *testing.T) {
	src := [16]byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	data := ipv6UDPPacket(src, src, 1, 2)

	e, _ := newTestEngine(Config{})
	var sm Summary
	e.decodeIPv6(data, &sm)

	if want := uint16(IPv6HdrLen + UDPHdrLen); sm.Len != want {
		t.Errorf("Expected Len %d, got %d", want, sm.Len)
	}
}

func TestDecodeIPv6ShortHeader(t *testing.T) {
	data := make([]byte, IPv6HdrLen-1)
	data[0] = 0x60

	e, _ := newTestEngine(Config{})
	var sm Summary
	e.decodeIPv6(data, &sm)

	if sm.Proto != ProtoInvalid {
		t.Errorf("Expected ProtoInvalid, got %d", sm.Proto)
	}
}
