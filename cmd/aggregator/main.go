package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/frostdev-ops/satwatch/internal/api"
	"github.com/frostdev-ops/satwatch/internal/config"
	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/internal/core/metrics"
	"github.com/frostdev-ops/satwatch/internal/database"
	"github.com/frostdev-ops/satwatch/pkg/logger"
	"github.com/frostdev-ops/satwatch/pkg/version"
)

func main() {
	flags := pflag.NewFlagSet("aggregator", pflag.ExitOnError)
	flags.String("config", "", "path to config.yaml")
	flags.Int("port", 0, "HTTP listen port")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.Banner("aggregator"))
		return
	}

	cfg, err := config.Load(config.ServiceAggregator, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.WithField("version", version.GetVersion()).Info("Starting satwatch aggregator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	// The aggregator may start before ingest has created the schema
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("Failed to run migrations: ", err)
		}
	}

	repos := database.NewRepositories(db, log.Logger)

	collector := metrics.New(&metrics.MetricsConfig{
		Enabled:       cfg.Metrics.Enabled,
		Prefix:        cfg.Metrics.Prefix,
		Service:       string(cfg.Service),
		SystemMetrics: cfg.Metrics.SystemMetrics,
	})

	checker := metrics.NewHealthChecker(2 * time.Second)
	checker.Register("database", "database unavailable", repos.Telemetry.Ping)

	go log.FlushEvery(ctx, time.Minute)

	router := api.NewAggregatorRouter(api.Deps{
		Config:    cfg,
		Logger:    log,
		Collector: collector,
		Checker:   checker,
	}, aggregate.NewService(repos.Telemetry, log.Logger))

	srv := api.NewHTTPServer(cfg.Server, router)
	if err := api.Serve(ctx, srv, cfg.Server.ShutdownTimeoutDuration(), log.Logger); err != nil {
		log.WithError(err).Error("Server failed")
		return
	}

	log.Info("Server exited")
}
