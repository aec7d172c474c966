package decode

import "github.com/google/gopacket/layers"

// Fixed header lengths, in bytes, for every framing and protocol variant
// the engine parses. Header fields are always extracted with explicit
// bounds-checked reads against these lengths.
const (
	EthernetHdrLen = 14
	NullHdrLen     = 4
	PPPHdrLen      = 4
	PPPoEHdrLen    = 8
	FDDIHdrLen     = 13
	SLLHdrLen      = 16
	RawHdrLen      = 0

	IPv4HdrLen = 20
	IPv6HdrLen = 40
	TCPHdrLen  = 20
	UDPHdrLen  = 8
)

// linkTypeDLTRaw is DLT_RAW as libpcap reports it on Linux. gopacket's
// LinkTypeRaw carries the BSD value (101); a live handle on a raw-IP
// interface such as tun hands back 12 unconverted.
const linkTypeDLTRaw layers.LinkType = 12

// LinkHeader describes one supported link type: its fixed header length
// and the decoder able to parse frames of that type. Entries with a nil
// decoder are recognized but cannot be decoded (the capture layer must
// refuse them).
type LinkHeader struct {
	LinkType layers.LinkType
	HdrLen   uint32

	decode func(*Engine, Frame)
}

// linkHeaders is built once and never mutated. It is small enough that
// a linear scan beats anything fancier.
var linkHeaders = []LinkHeader{
	{layers.LinkTypeEthernet, EthernetHdrLen, (*Engine).decodeEthernet},
	{layers.LinkTypeLoop, NullHdrLen, (*Engine).decodeLoop},
	{layers.LinkTypeNull, NullHdrLen, (*Engine).decodeLoop},
	{layers.LinkTypePPP, PPPHdrLen, (*Engine).decodePPP},
	{layers.LinkTypeFDDI, FDDIHdrLen, nil},
	{layers.LinkTypePPPEthernet, PPPoEHdrLen, (*Engine).decodePPPoE},
	{layers.LinkTypeLinuxSLL, SLLHdrLen, (*Engine).decodeLinuxSLL},
	{layers.LinkTypeRaw, RawHdrLen, (*Engine).decodeRaw},
	{linkTypeDLTRaw, RawHdrLen, (*Engine).decodeRaw},
}

// LookupLinkHeader returns the descriptor for the given link type, or
// false if the link type is not supported.
func LookupLinkHeader(linkType layers.LinkType) (*LinkHeader, bool) {
	for i := range linkHeaders {
		if linkHeaders[i].LinkType == linkType {
			return &linkHeaders[i], true
		}
	}
	return nil, false
}

// CanDecode reports whether the engine has a decoder for this link type.
func (lh *LinkHeader) CanDecode() bool { return lh.decode != nil }

// SnapLen returns the minimum capture length that guarantees a frame of
// this link type can be parsed through the transport header. The IPv6
// header is normative since it is the larger of the two network headers.
func (lh *LinkHeader) SnapLen() uint32 {
	return lh.HdrLen + IPv6HdrLen + max(TCPHdrLen, UDPHdrLen)
}
