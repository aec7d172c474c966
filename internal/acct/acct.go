// Package acct aggregates decoded packet summaries into traffic totals.
package acct

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/yjh0502/darkstat/internal/decode"
	"github.com/yjh0502/darkstat/internal/metrics"
)

// Host holds the per-address traffic counters.
type Host struct {
	Addr netip.Addr
	Name string // reverse DNS name, empty until resolved

	InBytes    uint64
	OutBytes   uint64
	InPackets  uint64
	OutPackets uint64
	LastSeen   time.Time
}

// Queuer enqueues an address for asynchronous reverse resolution.
type Queuer interface {
	Queue(addr netip.Addr)
}

// Accumulator is the accounting sink. It is owned by the capture loop
// and must not be shared across goroutines.
type Accumulator struct {
	log      *slog.Logger
	resolver Queuer // nil disables name resolution

	totalPackets uint64
	totalBytes   uint64

	hosts      map[netip.Addr]*Host
	protoBytes map[uint8]uint64
	tcpPorts   map[uint16]uint64
	udpPorts   map[uint16]uint64
}

// New returns an empty accumulator. A nil logger falls back to
// slog.Default(); a nil resolver disables reverse-DNS queueing.
func New(logger *slog.Logger, resolver Queuer) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		log:        logger,
		resolver:   resolver,
		hosts:      make(map[netip.Addr]*Host),
		protoBytes: make(map[uint8]uint64),
		tcpPorts:   make(map[uint16]uint64),
		udpPorts:   make(map[uint16]uint64),
	}
}

// Submit accounts one summary. Records marked with the non-accounting
// sentinel are dropped here; everything else is counted even when the
// transport layer had nothing to extract.
func (a *Accumulator) Submit(sm *decode.Summary) {
	if sm.Proto == decode.ProtoInvalid {
		return
	}

	length := uint64(sm.Len)
	a.totalPackets++
	a.totalBytes += length
	metrics.AccountedPacketsTotal.Inc()
	metrics.AccountedBytesTotal.Add(float64(length))

	src := a.host(sm.Src)
	src.OutPackets++
	src.OutBytes += length
	src.LastSeen = sm.Time

	dst := a.host(sm.Dst)
	dst.InPackets++
	dst.InBytes += length
	dst.LastSeen = sm.Time

	a.protoBytes[sm.Proto] += length
	switch sm.Proto {
	case decode.ProtoTCP:
		a.tcpPorts[sm.SrcPort] += length
		a.tcpPorts[sm.DstPort] += length
	case decode.ProtoUDP:
		a.udpPorts[sm.SrcPort] += length
		a.udpPorts[sm.DstPort] += length
	}
}

// host returns the table entry for addr, creating it on first sight and
// queueing the new address for reverse resolution.
func (a *Accumulator) host(addr netip.Addr) *Host {
	if h, ok := a.hosts[addr]; ok {
		return h
	}
	h := &Host{Addr: addr}
	a.hosts[addr] = h
	metrics.HostsTracked.Set(float64(len(a.hosts)))
	if a.resolver != nil {
		a.resolver.Queue(addr)
	}
	return h
}

// SetName records the reverse DNS name for addr if the host is known.
func (a *Accumulator) SetName(addr netip.Addr, name string) {
	if h, ok := a.hosts[addr]; ok {
		h.Name = name
	}
}

// Host returns a copy of the entry for addr.
func (a *Accumulator) Host(addr netip.Addr) (Host, bool) {
	h, ok := a.hosts[addr]
	if !ok {
		return Host{}, false
	}
	return *h, true
}

// Totals returns the overall accounted packet and byte counts.
func (a *Accumulator) Totals() (packets, bytes uint64) {
	return a.totalPackets, a.totalBytes
}

// ProtoBytes returns the bytes accounted to the given IP protocol.
func (a *Accumulator) ProtoBytes(proto uint8) uint64 {
	return a.protoBytes[proto]
}

// PortBytes returns the bytes accounted to a TCP or UDP port.
func (a *Accumulator) PortBytes(proto uint8, port uint16) uint64 {
	switch proto {
	case decode.ProtoTCP:
		return a.tcpPorts[port]
	case decode.ProtoUDP:
		return a.udpPorts[port]
	}
	return 0
}

// NumHosts returns the size of the host table.
func (a *Accumulator) NumHosts() int { return len(a.hosts) }
