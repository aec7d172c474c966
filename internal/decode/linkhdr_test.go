package decode

import (
	"testing"

	"github.com/google/gopacket/layers"
)

func TestLookupLinkHeader(t *testing.T) {
	cases := []struct {
		linkType  layers.LinkType
		hdrLen    uint32
		canDecode bool
	}{
		{layers.LinkTypeEthernet, EthernetHdrLen, true},
		{layers.LinkTypeNull, NullHdrLen, true},
		{layers.LinkTypeLoop, NullHdrLen, true},
		{layers.LinkTypePPP, PPPHdrLen, true},
		{layers.LinkTypePPPEthernet, PPPoEHdrLen, true},
		{layers.LinkTypeLinuxSLL, SLLHdrLen, true},
		{layers.LinkTypeRaw, RawHdrLen, true},
		{layers.LinkTypeFDDI, FDDIHdrLen, false},
	}
	for _, tc := range cases {
		lh, ok := LookupLinkHeader(tc.linkType)
		if !ok {
			t.Errorf("Expected link type %v to be registered", tc.linkType)
			continue
		}
		if lh.HdrLen != tc.hdrLen {
			t.Errorf("Link type %v: expected header length %d, got %d", tc.linkType, tc.hdrLen, lh.HdrLen)
		}
		if lh.CanDecode() != tc.canDecode {
			t.Errorf("Link type %v: expected CanDecode %v", tc.linkType, tc.canDecode)
		}
	}
}

// On Linux libpcap reports raw-IP interfaces such as tun as DLT_RAW
// (12), not the BSD value gopacket names LinkTypeRaw (101). Both must
// resolve to the raw decoder or a live handle can never select it.
func TestLookupLinkHeaderRawLinuxDLT(t *testing.T) {
	lh, ok := LookupLinkHeader(layers.LinkType(12))
	if !ok {
		t.Fatal("Expected DLT_RAW (12) to be registered")
	}
	if lh.HdrLen != RawHdrLen {
		t.Errorf("Expected header length %d, got %d", RawHdrLen, lh.HdrLen)
	}
	if !lh.CanDecode() {
		t.Error("Expected DLT_RAW to be decodable")
	}
}

func TestLookupLinkHeaderUnknown(t *testing.T) {
	if _, ok := LookupLinkHeader(layers.LinkTypeIEEE802_11); ok {
		t.Error("Expected 802.11 to be unsupported")
	}
}

// Every registered link type must capture enough bytes to parse through
// the transport header: the link header, the IPv6 header (the larger of
// the two network headers) and the larger transport header.
func TestSnapLen(t *testing.T) {
	for i := range linkHeaders {
		lh := &linkHeaders[i]
		want := lh.HdrLen + 40 + 20
		if got := lh.SnapLen(); got != want {
			t.Errorf("Link type %v: expected snaplen %d, got %d", lh.LinkType, want, got)
		}
	}
}
