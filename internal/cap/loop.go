package cap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yjh0502/darkstat/internal/acct"
	"github.com/yjh0502/darkstat/internal/decode"
	"github.com/yjh0502/darkstat/internal/dns"
	"github.com/yjh0502/darkstat/internal/metrics"
)

const statsInterval = 5 * time.Second

// Loop drives the capture source: each frame is decoded to completion
// before the next is read, and the resolver is polled between frames.
// Everything runs on the calling goroutine.
type Loop struct {
	Log       *slog.Logger
	Source    Source
	Interface string
	Decode    func(decode.Frame)
	Resolver  *dns.Resolver // nil disables resolver polling
	Acct      *acct.Accumulator
}

// Run reads frames until ctx is canceled or the source fails.
func (l *Loop) Run(ctx context.Context) error {
	if l.Log == nil {
		l.Log = slog.Default()
	}
	frames := metrics.CaptureFramesTotal.WithLabelValues(l.Interface)
	dropped := metrics.CaptureDropped.WithLabelValues(l.Interface)
	lastStats := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := l.Source.ReadFrame()
		switch {
		case errors.Is(err, ErrTimeout):
			// idle interface; housekeeping below still runs
		case err != nil:
			return fmt.Errorf("capture read failed: %w", err)
		default:
			frames.Inc()
			l.Decode(frame)
		}

		l.pollResolver()

		if now := time.Now(); now.Sub(lastStats) >= statsInterval {
			_, drops := l.Source.Stats()
			dropped.Set(float64(drops))
			lastStats = now
		}
	}
}

// pollResolver drains completed reverse lookups into the host table.
func (l *Loop) pollResolver() {
	if l.Resolver == nil {
		return
	}
	for _, res := range l.Resolver.Poll() {
		if res.Err != "" {
			l.Log.Debug("reverse lookup failed", "addr", res.Addr, "error", res.Err)
			continue
		}
		l.Acct.SetName(res.Addr, res.Name)
	}
}
