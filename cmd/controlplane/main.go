package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/frostdev-ops/satwatch/internal/adapters/aggregator"
	"github.com/frostdev-ops/satwatch/internal/api"
	"github.com/frostdev-ops/satwatch/internal/config"
	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	"github.com/frostdev-ops/satwatch/internal/core/metrics"
	"github.com/frostdev-ops/satwatch/internal/core/monitor"
	"github.com/frostdev-ops/satwatch/internal/websocket"
	"github.com/frostdev-ops/satwatch/pkg/logger"
	"github.com/frostdev-ops/satwatch/pkg/version"
)

func main() {
	flags := pflag.NewFlagSet("controlplane", pflag.ExitOnError)
	flags.String("config", "", "path to config.yaml")
	flags.Int("port", 0, "HTTP listen port")
	flags.String("aggregator", "", "aggregator base URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.Banner("controlplane"))
		return
	}

	cfg, err := config.Load(config.ServiceControlPlane, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.WithFields(logrus.Fields{
		"version":    version.GetVersion(),
		"aggregator": cfg.Aggregator.URL,
		"watchlist":  cfg.Watchlist,
	}).Info("Starting satwatch control plane")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.New(&metrics.MetricsConfig{
		Enabled:       cfg.Metrics.Enabled,
		Prefix:        cfg.Metrics.Prefix,
		Service:       string(cfg.Service),
		SystemMetrics: cfg.Metrics.SystemMetrics,
	})

	connect, read, write := cfg.Aggregator.Timeouts()
	client := aggregator.NewClient(cfg.Aggregator.URL, aggregator.Timeouts{
		Connect: connect,
		Read:    read,
		Write:   write,
	}, log.Logger)

	svc, err := monitor.NewService(monitor.ServiceConfig{
		Thresholds: alerting.Thresholds{
			LatencyP95Ms:   cfg.Thresholds.LatencyP95Ms,
			DropRate:       cfg.Thresholds.DropRate,
			MinLinkQuality: cfg.Thresholds.MinLinkQuality,
			WindowSeconds:  cfg.Thresholds.WindowSeconds,
		},
		Watchlist:    cfg.Watchlist,
		PollInterval: cfg.Poll.IntervalDuration(),
		Concurrency:  cfg.Poll.Concurrency,
	}, client, log.Logger)
	if err != nil {
		log.Fatal("Failed to create control plane: ", err)
	}

	// Create WebSocket hub
	hub := websocket.NewHub(log.Logger)
	hub.SetRecorder(collector)
	go hub.Run(ctx)

	svc.Poller().SetRecorder(collector)
	svc.Poller().SetPublisher(hub)

	if err := svc.Start(ctx); err != nil {
		log.Fatal("Failed to start poll loop: ", err)
	}
	defer func() {
		if err := svc.Stop(); err != nil {
			log.WithError(err).Warn("Poll loop did not stop cleanly")
		}
	}()

	checker := metrics.NewHealthChecker(read + connect)
	checker.Register("aggregator", "aggregator unreachable", client.Health)

	go log.FlushEvery(ctx, time.Minute)

	router := api.NewControlPlaneRouter(api.Deps{
		Config:    cfg,
		Logger:    log,
		Collector: collector,
		Checker:   checker,
	}, svc, hub)

	srv := api.NewHTTPServer(cfg.Server, router)
	if err := api.Serve(ctx, srv, cfg.Server.ShutdownTimeoutDuration(), log.Logger); err != nil {
		log.WithError(err).Error("Server failed")
		return
	}

	log.Info("Server exited")
}
