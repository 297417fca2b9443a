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

	"github.com/frostdev-ops/satwatch/internal/loadgen"
	"github.com/frostdev-ops/satwatch/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("loadgen", pflag.ExitOnError)
	host := flags.String("host", "http://localhost:8081", "ingest base URL")
	qps := flags.Float64("qps", 20, "samples per second")
	seconds := flags.Int("seconds", 60, "run duration in seconds")
	sats := flags.Int("sats", 5, "number of satellites (SAT-001 ..)")
	workers := flags.Int("workers", 4, "concurrent requests in flight")
	profilePath := flags.String("profile", "", "YAML traffic profile (defaults to the built-in scenarios)")
	seed := flags.Int64("seed", time.Now().UnixNano(), "random seed")
	logLevel := flags.String("log-level", "info", "log level")
	flags.Parse(os.Args[1:])

	log := logger.New(*logLevel, "text")

	if *sats < 1 {
		log.Fatal("--sats must be at least 1")
	}

	profile := loadgen.DefaultProfile()
	if *profilePath != "" {
		var err error
		if profile, err = loadgen.LoadProfile(*profilePath); err != nil {
			log.Fatal(err)
		}
	}

	runner, err := loadgen.NewRunner(loadgen.Config{
		URL:      *host,
		QPS:      *qps,
		Duration: time.Duration(*seconds) * time.Second,
		Workers:  *workers,
	}, loadgen.NewGenerator(profile, loadgen.SatIDs(*sats), *seed), log.Logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"host":      *host,
		"qps":       *qps,
		"seconds":   *seconds,
		"anomalies": len(profile.Anomalies),
	}).Info("Starting load run")

	result := runner.Run(ctx)

	log.WithFields(logrus.Fields{
		"sent":       result.Sent,
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	}).Info(fmt.Sprintf("sent %d events in %.0fs (~%.1f eps)", result.Sent, result.Elapsed.Seconds(), result.EventsPerSecond()))
}
