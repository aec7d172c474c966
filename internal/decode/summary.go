// Package decode turns raw captured frames into packet summaries.
//
// Each registered link type has a decoder that validates the frame against
// its fixed header length, extracts link addressing where the framing
// carries any, and hands the payload to the IP demuxer. A frame either
// produces exactly one summary for the accounting sink or is dropped with
// a diagnostic; malformed input never propagates an error out of the
// decode chain.
package decode

import (
	"net/netip"
	"time"
)

// IP protocol numbers the transport demuxer understands.
const (
	ProtoICMP   = 1
	ProtoTCP    = 6
	ProtoUDP    = 17
	ProtoESP    = 50
	ProtoAH     = 51
	ProtoICMPv6 = 58
	ProtoOSPF   = 89

	// ProtoInvalid marks a summary whose network layer parsed but whose
	// transport header was truncated. The accounting sink must skip it.
	ProtoInvalid = 254
)

// TCP flag bits kept in Summary.TCPFlags. Anything outside tcpFlagMask
// (ECE, CWR) is stripped during decoding.
const (
	TCPFlagFIN = 0x01
	TCPFlagSYN = 0x02
	TCPFlagRST = 0x04
	TCPFlagPSH = 0x08
	TCPFlagACK = 0x10
	TCPFlagURG = 0x20

	tcpFlagMask = TCPFlagFIN | TCPFlagSYN | TCPFlagRST | TCPFlagPSH | TCPFlagACK | TCPFlagURG
)

// Summary is the normalized record produced for one captured frame.
// It is zero-initialized at frame entry and populated top-down by the
// link, network and transport layers; fields a layer did not reach keep
// their zero value. A summary lives for the duration of one decode call
// and is consumed exactly once by the sink.
type Summary struct {
	Time   time.Time
	SrcMAC [6]byte
	DstMAC [6]byte

	// Len is the logical packet length declared by the network header
	// (IPv4 total length; IPv6 payload length plus the fixed header),
	// not the possibly truncated capture length.
	Len   uint16
	Proto uint8

	Src netip.Addr
	Dst netip.Addr

	SrcPort  uint16
	DstPort  uint16
	TCPFlags uint8
}

// Sink receives completed summaries. It must tolerate records whose
// Proto is ProtoInvalid or whose transport fields are zero.
type Sink interface {
	Submit(sm *Summary)
}
