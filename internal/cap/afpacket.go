package cap

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"github.com/yjh0502/darkstat/internal/config"
	"github.com/yjh0502/darkstat/internal/decode"
)

// AFPacketSource captures through a TPACKETv3 ring buffer. AF_PACKET
// sockets always deliver Ethernet framing.
type AFPacketSource struct {
	handle *afpacket.TPacket
}

// OpenAFPacket opens an AF_PACKET ring on the configured interface.
func OpenAFPacket(cfg config.CaptureConfig) (*AFPacketSource, *decode.LinkHeader, error) {
	lh, _ := decode.LookupLinkHeader(layers.LinkTypeEthernet)
	snapLen := int(lh.SnapLen())

	frameSize, blockSize, numBlocks, err := ringLayout(cfg.BufferSizeMB, snapLen, os.Getpagesize())
	if err != nil {
		return nil, nil, err
	}

	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(time.Duration(cfg.TimeoutMs)*time.Millisecond),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open af_packet on %s: %w", cfg.Interface, err)
	}

	if cfg.Filter != "" {
		if err := setBPFFilter(handle, snapLen, cfg.Filter); err != nil {
			handle.Close()
			return nil, nil, err
		}
	}
	return &AFPacketSource{handle: handle}, lh, nil
}

// setBPFFilter compiles a pcap filter expression and attaches it to the
// AF_PACKET socket as raw BPF instructions.
func setBPFFilter(handle *afpacket.TPacket, snapLen int, filter string) error {
	pcapBPF, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, filter)
	if err != nil {
		return fmt.Errorf("failed to compile filter %q: %w", filter, err)
	}
	rawBPF := make([]bpf.RawInstruction, len(pcapBPF))
	for i, inst := range pcapBPF {
		rawBPF[i] = bpf.RawInstruction{
			Op: inst.Code,
			Jt: inst.Jt,
			Jf: inst.Jf,
			K:  inst.K,
		}
	}
	if err := handle.SetBPF(rawBPF); err != nil {
		return fmt.Errorf("failed to set filter: %w", err)
	}
	return nil
}

// ringLayout computes a TPACKETv3 ring geometry honoring the kernel's
// alignment rules: the block size must be a multiple of both the page
// size and the frame size, and the total memory should approximate the
// configured budget. The frame size is rounded up to a power of two so
// it always divides the page-aligned block size.
func ringLayout(bufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const tpacketHdrLen = 52

	if bufferSizeMB <= 0 {
		return 0, 0, 0, fmt.Errorf("buffer_size_mb must be positive, got %d", bufferSizeMB)
	}
	if snapLen <= 0 {
		return 0, 0, 0, fmt.Errorf("snaplen must be positive, got %d", snapLen)
	}

	frameSize = 16
	for frameSize < tpacketHdrLen+snapLen {
		frameSize *= 2
	}

	blockSize = pageSize
	for blockSize < frameSize {
		blockSize *= 2
	}

	numBlocks = bufferSizeMB * 1024 * 1024 / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func (s *AFPacketSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

func (s *AFPacketSource) ReadFrame() (decode.Frame, error) {
	data, ci, err := s.handle.ZeroCopyReadPacketData()
	if err == afpacket.ErrTimeout {
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

func (s *AFPacketSource) Stats() (uint64, uint64) {
	_, v3, err := s.handle.SocketStats()
	if err != nil {
		return 0, 0
	}
	return uint64(v3.Packets()), uint64(v3.Drops())
}

func (s *AFPacketSource) Close() { s.handle.Close() }
