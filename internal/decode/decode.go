package decode

import (
	"encoding/binary"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/yjh0502/darkstat/internal/metrics"
)

// EtherType values the Ethernet and Linux-cooked decoders dispatch on.
const (
	etherTypeIPv4  = 0x0800
	etherTypeARP   = 0x0806
	etherTypeIPv6  = 0x86DD
	etherTypePPPoE = 0x8864
)

// PPP protocol identifiers carried by PPP and PPPoE frames.
const (
	pppProtoIP  = 0x0021
	pppProtoLCP = 0xc021
	pppProtoLQR = 0xc025
)

// Frame is one captured frame as delivered by the capture layer. Data
// must be at least CapLen bytes long and only needs to stay valid for
// the duration of the decode call.
type Frame struct {
	Data   []byte
	CapLen uint32
	Time   time.Time
}

// Config holds the options that alter decoding behavior.
type Config struct {
	// WantPPPoE makes the Ethernet decoder expect PPPoE session frames
	// and discard plain IP ones.
	WantPPPoE bool
}

// Engine decodes frames and forwards completed summaries to the sink.
// It is stateless apart from its collaborators, so decoding the same
// frame twice yields identical summaries.
type Engine struct {
	cfg  Config
	log  *slog.Logger
	sink Sink
}

// NewEngine returns an engine writing summaries to sink. A nil logger
// falls back to slog.Default().
func NewEngine(cfg Config, logger *slog.Logger, sink Sink) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, log: logger, sink: sink}
}

// Decoder returns the per-frame decode function for the given link
// header descriptor, or nil if the link type has no decoder.
func (e *Engine) Decoder(lh *LinkHeader) func(Frame) {
	if lh.decode == nil {
		return nil
	}
	fn := lh.decode
	return func(f Frame) { fn(e, f) }
}

// drop logs a diagnostic for a frame rejected at the given layer and
// counts it. The capture loop is never interrupted by malformed input.
func (e *Engine) drop(layer, reason string, args ...any) {
	e.log.Debug(layer+": "+reason, args...)
	metrics.DecodeDropsTotal.WithLabelValues(layer).Inc()
}

// deliver runs the IP demuxer on payload and submits the summary. Once
// a link decoder hands a frame here the sink is invoked exactly once;
// network or transport parse failures mark the summary with ProtoInvalid
// instead of suppressing the submit.
func (e *Engine) deliver(payload []byte, sm *Summary) {
	e.decodeIP(payload, sm)
	e.sink.Submit(sm)
}

func (e *Engine) decodeEthernet(f Frame) {
	if f.CapLen < EthernetHdrLen {
		e.drop("ethernet", "packet too short", "caplen", f.CapLen)
		return
	}
	sm := Summary{Time: f.Time}
	copy(sm.DstMAC[:], f.Data[0:6])
	copy(sm.SrcMAC[:], f.Data[6:12])

	etherType := binary.BigEndian.Uint16(f.Data[12:14])
	switch etherType {
	case etherTypeIPv4, etherTypeIPv6:
		if e.cfg.WantPPPoE {
			e.drop("ethernet", "discarded IP frame, expecting PPPoE instead")
			return
		}
		e.deliver(f.Data[EthernetHdrLen:f.CapLen], &sm)
	case etherTypeARP:
		// known protocol, nothing to account
	case etherTypePPPoE:
		if e.cfg.WantPPPoE {
			e.decodePPPoESession(f.Data[EthernetHdrLen:f.CapLen], &sm)
		} else {
			e.drop("ethernet", "got PPPoE frame without pppoe mode enabled")
		}
	default:
		e.drop("ethernet", "unknown protocol", "ethertype", etherType)
	}
}

// decodeLoop handles DLT_NULL and DLT_LOOP frames. The address family
// word is written by the loopback driver in host byte order.
func (e *Engine) decodeLoop(f Frame) {
	if f.CapLen < NullHdrLen {
		e.drop("loop", "packet too short", "caplen", f.CapLen)
		return
	}
	sm := Summary{Time: f.Time}

	family := binary.NativeEndian.Uint32(f.Data[0:4])
	switch family {
	case unix.AF_INET, unix.AF_INET6:
		e.deliver(f.Data[NullHdrLen:f.CapLen], &sm)
	default:
		e.drop("loop", "unknown address family", "family", family)
	}
}

func (e *Engine) decodePPP(f Frame) {
	if f.CapLen < PPPHdrLen {
		e.drop("ppp", "packet too short", "caplen", f.CapLen)
		return
	}
	sm := Summary{Time: f.Time}

	if proto := binary.BigEndian.Uint16(f.Data[2:4]); proto != pppProtoIP {
		e.drop("ppp", "non-IP PPP frame", "proto", proto)
		return
	}
	e.deliver(f.Data[PPPHdrLen:f.CapLen], &sm)
}

func (e *Engine) decodePPPoE(f Frame) {
	sm := Summary{Time: f.Time}
	e.decodePPPoESession(f.Data[:f.CapLen], &sm)
}

// decodePPPoESession parses a PPPoE header at the start of data, either
// a whole DLT_PPP_ETHER frame or the payload of an Ethernet PPPoE frame.
func (e *Engine) decodePPPoESession(data []byte, sm *Summary) {
	if len(data) < PPPoEHdrLen {
		e.drop("pppoe", "packet too short", "caplen", len(data))
		return
	}
	if code := data[1]; code != 0x00 {
		e.drop("pppoe", "unexpected code, want 0 (session data)", "code", code)
		return
	}

	switch proto := binary.BigEndian.Uint16(data[6:8]); proto {
	case pppProtoLCP, pppProtoLQR:
		// link control traffic, not accounted
	case pppProtoIP:
		e.deliver(data[PPPoEHdrLen:], sm)
	default:
		e.drop("pppoe", "non-IP PPPoE frame", "proto", proto)
	}
}

// decodeLinuxSLL handles Linux cooked-capture frames: 2-byte packet
// type, 2-byte device type, 2-byte address length, 8-byte address,
// 2-byte ethertype. Dispatch matches Ethernet minus the PPPoE special
// case.
func (e *Engine) decodeLinuxSLL(f Frame) {
	if f.CapLen < SLLHdrLen {
		e.drop("linux_sll", "packet too short", "caplen", f.CapLen)
		return
	}
	sm := Summary{Time: f.Time}
	if addrLen := binary.BigEndian.Uint16(f.Data[4:6]); addrLen == 6 {
		copy(sm.SrcMAC[:], f.Data[6:12])
	}

	etherType := binary.BigEndian.Uint16(f.Data[14:16])
	switch etherType {
	case etherTypeIPv4, etherTypeIPv6:
		e.deliver(f.Data[SLLHdrLen:f.CapLen], &sm)
	case etherTypeARP:
		// known protocol, nothing to account
	default:
		e.drop("linux_sll", "unknown protocol", "ethertype", etherType)
	}
}

// decodeRaw hands the entire frame to the IP demuxer; raw IP framing
// has no link header.
func (e *Engine) decodeRaw(f Frame) {
	sm := Summary{Time: f.Time}
	e.deliver(f.Data[:f.CapLen], &sm)
}
