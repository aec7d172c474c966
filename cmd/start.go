package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/yjh0502/darkstat/internal/acct"
	"github.com/yjh0502/darkstat/internal/cap"
	"github.com/yjh0502/darkstat/internal/config"
	"github.com/yjh0502/darkstat/internal/decode"
	"github.com/yjh0502/darkstat/internal/dns"
	"github.com/yjh0502/darkstat/internal/log"
	"github.com/yjh0502/darkstat/internal/metrics"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start capturing and accounting traffic",
	Long: `Start the traffic monitor: open the capture source on the configured
interface, decode every frame and account it until SIGINT or SIGTERM.

Examples:
  darkstat start                       # use /etc/darkstat/config.yml
  darkstat start -c ./darkstat.yml     # explicit config file
`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		metricsServer.Start()
	}

	var resolver *dns.Resolver
	if cfg.DNS.Enabled {
		resolver, err = dns.Start(slog.Default(), cfg.DNS.PrivdropUser)
		if err != nil {
			return err
		}
	}

	var queuer acct.Queuer
	if resolver != nil {
		queuer = resolver
	}
	accumulator := acct.New(slog.Default(), queuer)
	engine := decode.NewEngine(
		decode.Config{WantPPPoE: cfg.Capture.PPPoE},
		slog.Default(),
		accumulator,
	)

	source, lh, err := cap.Open(cfg.Capture)
	if err != nil {
		return err
	}
	defer source.Close()

	slog.Info("capture started",
		"interface", cfg.Capture.Interface,
		"source", cfg.Capture.Source,
		"linktype", lh.LinkType,
		"snaplen", lh.SnapLen(),
		"filter", cfg.Capture.Filter,
		"pppoe", cfg.Capture.PPPoE,
	)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, unix.SIGINT, unix.SIGTERM)
	go func() {
		sig := <-sigc
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	loop := &cap.Loop{
		Log:       slog.Default(),
		Source:    source,
		Interface: cfg.Capture.Interface,
		Decode:    engine.Decoder(lh),
		Resolver:  resolver,
		Acct:      accumulator,
	}
	runErr := loop.Run(ctx)

	if resolver != nil {
		if err := resolver.Stop(); err != nil {
			slog.Warn("resolver shutdown failed", "error", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(context.Background()); err != nil {
			slog.Warn("metrics shutdown failed", "error", err)
		}
	}

	packets, bytes := accumulator.Totals()
	slog.Info("capture stopped",
		"accounted_packets", packets,
		"accounted_bytes", bytes,
		"hosts", accumulator.NumHosts(),
	)
	return runErr
}
