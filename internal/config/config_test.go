package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.Int("port", 0, "")
	flags.String("db", "", "")
	flags.String("aggregator", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := Load(ServiceControlPlane, newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, ServiceControlPlane, cfg.Service)
	assert.Equal(t, 8083, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:8082", cfg.Aggregator.URL)
	assert.Equal(t, 5*time.Second, cfg.Poll.IntervalDuration())
	assert.Equal(t, 1, cfg.Poll.Concurrency)
	assert.Equal(t, 200.0, cfg.Thresholds.LatencyP95Ms)
	assert.Equal(t, 0.05, cfg.Thresholds.DropRate)
	assert.Equal(t, 0.7, cfg.Thresholds.MinLinkQuality)
	assert.Equal(t, 600, cfg.Thresholds.WindowSeconds)
	assert.Equal(t, []string{"SAT-001", "SAT-002", "SAT-003", "SAT-004", "SAT-005"}, cfg.Watchlist)

	connect, read, write := cfg.Aggregator.Timeouts()
	assert.Equal(t, 2*time.Second, connect)
	assert.Equal(t, 2*time.Second, read)
	assert.Equal(t, 2*time.Second, write)
}

func TestLoadServiceDefaultPorts(t *testing.T) {
	path := writeConfig(t, "{}\n")

	ingest, err := Load(ServiceIngest, newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, 8081, ingest.Server.Port)

	aggregator, err := Load(ServiceAggregator, newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, 8082, aggregator.Server.Port)
}

func TestLoadFileAndFlagOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
thresholds:
  drop_rate: 0.1
  window_s: 60
watchlist:
  - SAT-100
poll:
  interval: 2s
`)

	cfg, err := Load(ServiceControlPlane, newFlags(t, "--config", path, "--port", "9100", "--aggregator", "http://agg:8082"))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "flag beats file")
	assert.Equal(t, "http://agg:8082", cfg.Aggregator.URL)
	assert.Equal(t, 0.1, cfg.Thresholds.DropRate)
	assert.Equal(t, 60, cfg.Thresholds.WindowSeconds)
	assert.Equal(t, []string{"SAT-100"}, cfg.Watchlist)
	assert.Equal(t, 2*time.Second, cfg.Poll.IntervalDuration())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "{}\n")
	t.Setenv("DATABASE_PATH", "/tmp/sat.db")
	t.Setenv("SATWATCH_LOGGING_FORMAT", "text")

	cfg, err := Load(ServiceIngest, newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sat.db", cfg.Database.Path)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(ServiceIngest, newFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service:    ServiceControlPlane,
			Server:     ServerConfig{Port: 8083, Host: "0.0.0.0"},
			Logging:    LoggingConfig{Level: "info", Format: "json"},
			Aggregator: AggregatorConfig{URL: "http://localhost:8082"},
			Poll:       PollConfig{Interval: "5s", Concurrency: 1},
			Thresholds: ThresholdsConfig{LatencyP95Ms: 200, DropRate: 0.05, MinLinkQuality: 0.7, WindowSeconds: 600},
			Watchlist:  []string{"SAT-001"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty watchlist", func(c *Config) { c.Watchlist = nil }, "watchlist"},
		{"zero window", func(c *Config) { c.Thresholds.WindowSeconds = 0 }, "thresholds.window_s"},
		{"drop rate above one", func(c *Config) { c.Thresholds.DropRate = 1.5 }, "thresholds.drop_rate"},
		{"bad interval", func(c *Config) { c.Poll.Interval = "soon" }, "poll.interval"},
		{"no concurrency", func(c *Config) { c.Poll.Concurrency = 0 }, "poll.concurrency"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ingest without db", func(c *Config) { c.Service = ServiceIngest }, "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestShippedConfigLoadsForEveryService(t *testing.T) {
	for _, service := range []Service{ServiceIngest, ServiceAggregator, ServiceControlPlane} {
		cfg, err := Load(service, newFlags(t, "--config", "../../configs/config.yaml"))
		require.NoError(t, err, service)
		assert.Equal(t, defaultPorts[service], cfg.Server.Port)
		assert.Len(t, cfg.Watchlist, 5)
	}
}
