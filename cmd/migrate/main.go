package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/pflag"

	"github.com/frostdev-ops/satwatch/internal/config"
	"github.com/frostdev-ops/satwatch/internal/database"
	"github.com/frostdev-ops/satwatch/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	flags.String("config", "", "path to config.yaml")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [--config FILE] [--db PATH] up|down|version")
		flags.PrintDefaults()
	}
	flags.Parse(os.Args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}
	command := flags.Arg(0)

	cfg, err := config.Load(config.ServiceIngest, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, "text")

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	m, err := database.NewMigrator(db)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("An error occurred while migrating up: %v", err)
		}
		log.Info("Migrations applied successfully.")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("An error occurred while migrating down: %v", err)
		}
		log.Info("Migrations rolled back successfully.")
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("No migrations applied.")
			return
		}
		if err != nil {
			log.Fatalf("Failed to read schema version: %v", err)
		}
		log.WithField("dirty", dirty).Infof("Schema version %d", v)
	default:
		log.Fatalf("Unknown command: %s. Use `up`, `down` or `version`.", command)
	}
}
