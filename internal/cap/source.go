// Package cap provides the capture sources that feed the decode engine
// and the synchronous loop driving decoding and resolver polling.
package cap

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/yjh0502/darkstat/internal/config"
	"github.com/yjh0502/darkstat/internal/decode"
)

// ErrTimeout is returned by ReadFrame when the source's poll timeout
// expired without a frame. The loop uses it as its chance to do
// housekeeping between frames.
var ErrTimeout = errors.New("cap: read timeout")

// Source is one opened capture handle.
type Source interface {
	LinkType() layers.LinkType
	ReadFrame() (decode.Frame, error)
	// Stats reports frames seen and dropped by the kernel since open.
	Stats() (received, dropped uint64)
	Close()
}

// Open opens the capture source selected by the configuration and
// returns it together with the link header descriptor the decoder
// selection and snaplen were derived from.
func Open(cfg config.CaptureConfig) (Source, *decode.LinkHeader, error) {
	switch cfg.Source {
	case "afpacket":
		return OpenAFPacket(cfg)
	default:
		return OpenPCAP(cfg)
	}
}

// PCAPSource captures through a live libpcap handle.
type PCAPSource struct {
	handle *pcap.Handle
}

// OpenPCAP opens a live handle on the configured interface. The link
// type is probed first so the registry can supply the minimum snaplen
// that still covers the transport headers.
func OpenPCAP(cfg config.CaptureConfig) (*PCAPSource, *decode.LinkHeader, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	probe, err := pcap.OpenLive(cfg.Interface, 256, false, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Interface, err)
	}
	linkType := probe.LinkType()
	probe.Close()

	lh, ok := decode.LookupLinkHeader(linkType)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported link type %v on %s", linkType, cfg.Interface)
	}
	if !lh.CanDecode() {
		return nil, nil, fmt.Errorf("no decoder for link type %v on %s", linkType, cfg.Interface)
	}

	handle, err := pcap.OpenLive(cfg.Interface, int32(lh.SnapLen()), cfg.Promisc, timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Interface, err)
	}
	if cfg.Filter != "" {
		if err := handle.SetBPFFilter(cfg.Filter); err != nil {
			handle.Close()
			return nil, nil, fmt.Errorf("failed to set filter %q: %w", cfg.Filter, err)
		}
	}
	return &PCAPSource{handle: handle}, lh, nil
}

func (s *PCAPSource) LinkType() layers.LinkType { return s.handle.LinkType() }

func (s *PCAPSource) ReadFrame() (decode.Frame, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return decode.Frame{}, ErrTimeout
	}
	if err != nil {
		return decode.Frame{}, err
	}
	return decode.Frame{
		Data:   data,
		CapLen: uint32(ci.CaptureLength),
		Time:   ci.Timestamp,
	}, nil
}

func (s *PCAPSource) Stats() (uint64, uint64) {
	st, err := s.handle.Stats()
	if err != nil {
		return 0, 0
	}
	return uint64(st.PacketsReceived), uint64(st.PacketsDropped)
}

func (s *PCAPSource) Close() { s.handle.Close() }
