package decode

import "encoding/binary"

// decodeIPPayload extracts transport-layer fields according to the
// protocol number the network layer filled in. A truncated TCP or UDP
// header downgrades the summary to ProtoInvalid; the network-layer
// fields already set are kept as parsed.
func (e *Engine) decodeIPPayload(data []byte, sm *Summary) {
	switch sm.Proto {
	case ProtoTCP:
		if len(data) < TCPHdrLen {
			e.drop("tcp", "packet too short", "len", len(data))
			sm.Proto = ProtoInvalid
			return
		}
		sm.SrcPort = binary.BigEndian.Uint16(data[0:2])
		sm.DstPort = binary.BigEndian.Uint16(data[2:4])
		sm.TCPFlags = data[13] & tcpFlagMask

	case ProtoUDP:
		if len(data) < UDPHdrLen {
			e.drop("udp", "packet too short", "len", len(data))
			sm.Proto = ProtoInvalid
			return
		}
		sm.SrcPort = binary.BigEndian.Uint16(data[0:2])
		sm.DstPort = binary.BigEndian.Uint16(data[2:4])

	case ProtoICMP, ProtoICMPv6, ProtoAH, ProtoESP, ProtoOSPF:
		// recognized protocols with no fields the accounting cares about

	default:
		e.drop("ip", "unknown protocol", "proto", sm.Proto)
	}
}
