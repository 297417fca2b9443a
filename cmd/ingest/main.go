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
	"github.com/frostdev-ops/satwatch/internal/core/metrics"
	"github.com/frostdev-ops/satwatch/internal/core/retention"
	"github.com/frostdev-ops/satwatch/internal/database"
	"github.com/frostdev-ops/satwatch/pkg/logger"
	"github.com/frostdev-ops/satwatch/pkg/version"
)

func main() {
	flags := pflag.NewFlagSet("ingest", pflag.ExitOnError)
	flags.String("config", "", "path to config.yaml")
	flags.Int("port", 0, "HTTP listen port")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.Banner("ingest"))
		return
	}

	// Load configuration
	cfg, err := config.Load(config.ServiceIngest, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.WithField("version", version.GetVersion()).Info("Starting satwatch ingest")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

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

	// Retention pruning
	if cfg.Retention.Enabled {
		pruner, err := retention.NewPruner(retention.Config{
			Schedule: cfg.Retention.Schedule,
			MaxAge:   cfg.Retention.MaxAgeDuration(),
		}, repos.Telemetry, collector, log.Logger)
		if err != nil {
			log.Fatal("Failed to configure retention: ", err)
		}
		if err := pruner.Start(); err != nil {
			log.Fatal("Failed to start retention: ", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
			defer cancel()
			if err := pruner.Stop(stopCtx); err != nil {
				log.WithError(err).Warn("Retention job did not stop cleanly")
			}
		}()
	}

	go log.FlushEvery(ctx, time.Minute)

	router := api.NewIngestRouter(api.Deps{
		Config:    cfg,
		Logger:    log,
		Collector: collector,
		Checker:   checker,
	}, repos.Telemetry)

	srv := api.NewHTTPServer(cfg.Server, router)
	if err := api.Serve(ctx, srv, cfg.Server.ShutdownTimeoutDuration(), log.Logger); err != nil {
		log.WithError(err).Error("Server failed")
		return
	}

	log.Info("Server exited")
}
