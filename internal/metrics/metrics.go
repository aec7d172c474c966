// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CaptureFramesTotal counts frames handed to the decoder by interface.
	CaptureFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkstat_capture_frames_total",
			Help: "Total number of frames read from the capture source",
		},
		[]string{"interface"},
	)

	// CaptureDropped tracks frames dropped by the kernel before capture.
	CaptureDropped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "darkstat_capture_dropped",
			Help: "Frames dropped by the capture source as reported by its stats",
		},
		[]string{"interface"},
	)

	// DecodeDropsTotal counts frames rejected during decoding by the
	// layer that rejected them (ethernet, loop, ppp, pppoe, linux_sll,
	// ip, ipv6, tcp, udp).
	DecodeDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkstat_decode_drops_total",
			Help: "Total number of frames rejected during decoding",
		},
		[]string{"layer"},
	)

	// AccountedPacketsTotal counts summaries accepted by the accounting sink.
	AccountedPacketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkstat_accounted_packets_total",
			Help: "Total number of packet summaries accounted",
		},
	)

	// AccountedBytesTotal counts bytes accepted by the accounting sink,
	// using the length declared by the network header.
	AccountedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkstat_accounted_bytes_total",
			Help: "Total number of bytes accounted",
		},
	)

	// HostsTracked gauges the size of the accounting host table.
	HostsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "darkstat_hosts_tracked",
			Help: "Current number of hosts in the accounting table",
		},
	)

	// DNSResolvedTotal counts completed reverse resolutions by outcome.
	DNSResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkstat_dns_resolved_total",
			Help: "Total number of reverse DNS resolutions drained from the resolver",
		},
		[]string{"outcome"},
	)
)
