package decode

import (
	"encoding/binary"
	"net/netip"
)

// decodeIP demuxes the network layer. The version nibble is inspected
// first: several link types do not distinguish v4 from v6 in their own
// header, so a nibble of 6 redirects to the IPv6 path unconditionally.
// On any parse failure the summary is marked ProtoInvalid and the
// function returns; the caller still submits the record.
func (e *Engine) decodeIP(data []byte, sm *Summary) {
	if len(data) >= 1 && data[0]>>4 == 6 {
		e.decodeIPv6(data, sm)
		return
	}
	if len(data) < IPv4HdrLen {
		e.drop("ip", "packet too short", "len", len(data))
		sm.Proto = ProtoInvalid
		return
	}
	if version := data[0] >> 4; version != 4 {
		e.drop("ip", "unexpected version, want 4 or 6", "version", version)
		sm.Proto = ProtoInvalid
		return
	}

	sm.Len = binary.BigEndian.Uint16(data[2:4])
	sm.Proto = data[9]
	sm.Src = netip.AddrFrom4([4]byte(data[12:16]))
	sm.Dst = netip.AddrFrom4([4]byte(data[16:20]))

	e.decodeIPPayload(data[IPv4HdrLen:], sm)
}

func (e *Engine) decodeIPv6(data []byte, sm *Summary) {
	if len(data) < IPv6HdrLen {
		e.drop("ipv6", "packet too short", "len", len(data))
		sm.Proto = ProtoInvalid
		return
	}

	// The wire field counts payload only; Len holds the total length
	// including the fixed header, matching the IPv4 semantics.
	sm.Len = binary.BigEndian.Uint16(data[4:6]) + IPv6HdrLen
	sm.Proto = data[6]
	sm.Src = netip.AddrFrom16([16]byte(data[8:24]))
	sm.Dst = netip.AddrFrom16([16]byte(data[24:40]))

	e.decodeIPPayload(data[IPv6HdrLen:], sm)
}
