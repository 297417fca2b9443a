package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Service identifies which binary is loading the configuration. Defaults and
// validation differ slightly between them.
type Service string

const (
	ServiceIngest       Service = "ingest"
	ServiceAggregator   Service = "aggregator"
	ServiceControlPlane Service = "controlplane"
)

var defaultPorts = map[Service]int{
	ServiceIngest:       8081,
	ServiceAggregator:   8082,
	ServiceControlPlane: 8083,
}

type Config struct {
	Service Service `mapstructure:"-"`

	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Security   SecurityConfig   `mapstructure:"security"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Poll       PollConfig       `mapstructure:"poll"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Watchlist  []string         `mapstructure:"watchlist"`
	Retention  RetentionConfig  `mapstructure:"retention"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	Host            string `mapstructure:"host"`
	Mode            string `mapstructure:"mode"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
	Compression     bool   `mapstructure:"compression"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
	BusyTimeoutMs  int    `mapstructure:"busy_timeout_ms"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig contains Prometheus exposition configuration
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Prefix        string `mapstructure:"prefix"`
	SystemMetrics bool   `mapstructure:"system_metrics"`
}

// SecurityConfig contains CORS settings for the HTTP surfaces
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AggregatorConfig describes how the control plane reaches the aggregator.
// Timeouts apply independently to the connect, read and write phases.
type AggregatorConfig struct {
	URL            string `mapstructure:"url"`
	ConnectTimeout string `mapstructure:"connect_timeout"`
	ReadTimeout    string `mapstructure:"read_timeout"`
	WriteTimeout   string `mapstructure:"write_timeout"`
}

// PollConfig controls the control-plane poll loop
type PollConfig struct {
	Interval    string `mapstructure:"interval"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ThresholdsConfig holds the initial alert thresholds. They can be changed at
// runtime through the control-plane API.
type ThresholdsConfig struct {
	LatencyP95Ms   float64 `mapstructure:"latency_p95_ms"`
	DropRate       float64 `mapstructure:"drop_rate"`
	MinLinkQuality float64 `mapstructure:"min_link_quality"`
	WindowSeconds  int     `mapstructure:"window_s"`
}

// RetentionConfig controls pruning of raw samples
type RetentionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	MaxAge   string `mapstructure:"max_age"`
}

// Load reads configuration for the given service from config.yaml (./configs
// or the working directory, or the file named by the "config" flag), then
// environment variables, then command-line flags.
func Load(service Service, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v, service)

	v.SetEnvPrefix("SATWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("aggregator.url", "AGGREGATOR_URL")

	explicitFile := false
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			explicitFile = true
		}
		bindFlag(v, flags, "server.port", "port")
		bindFlag(v, flags, "database.path", "db")
		bindFlag(v, flags, "aggregator.url", "aggregator")
		bindFlag(v, flags, "logging.level", "log-level")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicitFile {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Service = service

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		v.BindPFlag(key, f)
	}
}

// Validate validates the configuration for completeness and correctness
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errors = append(errors, "logging.format must be json or text")
	}

	switch c.Service {
	case ServiceIngest, ServiceAggregator:
		if c.Database.Path == "" {
			errors = append(errors, "database.path is required")
		}
		if c.Database.MaxConnections <= 0 {
			errors = append(errors, "database.max_connections must be greater than 0")
		}
	case ServiceControlPlane:
		if c.Aggregator.URL == "" {
			errors = append(errors, "aggregator.url is required")
		}
		if c.Poll.Concurrency < 1 {
			errors = append(errors, "poll.concurrency must be at least 1")
		}
		if len(c.Watchlist) == 0 {
			errors = append(errors, "watchlist must contain at least one satellite id")
		}
		errors = append(errors, c.Thresholds.validate()...)
	}

	for key, value := range map[string]string{
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
		"aggregator.connect_timeout": c.Aggregator.ConnectTimeout,
		"aggregator.read_timeout":    c.Aggregator.ReadTimeout,
		"aggregator.write_timeout":   c.Aggregator.WriteTimeout,
		"poll.interval":              c.Poll.Interval,
		"retention.max_age":          c.Retention.MaxAge,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be a positive duration", key))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (t ThresholdsConfig) validate() []string {
	var errors []string
	for key, value := range map[string]float64{
		"thresholds.latency_p95_ms":   t.LatencyP95Ms,
		"thresholds.drop_rate":        t.DropRate,
		"thresholds.min_link_quality": t.MinLinkQuality,
	} {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			errors = append(errors, fmt.Sprintf("%s must be a non-negative number", key))
		}
	}
	if t.DropRate > 1 {
		errors = append(errors, "thresholds.drop_rate must be within [0,1]")
	}
	if t.MinLinkQuality > 1 {
		errors = append(errors, "thresholds.min_link_quality must be within [0,1]")
	}
	if t.WindowSeconds < 1 {
		errors = append(errors, "thresholds.window_s must be at least 1")
	}
	return errors
}

// Address returns the listen address for the HTTP server
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeoutDuration returns the graceful shutdown budget
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(s.ShutdownTimeout, 30*time.Second)
}

// Timeouts returns the connect, read and write timeouts for aggregator requests
func (a AggregatorConfig) Timeouts() (connect, read, write time.Duration) {
	return parseDuration(a.ConnectTimeout, 2*time.Second),
		parseDuration(a.ReadTimeout, 2*time.Second),
		parseDuration(a.WriteTimeout, 2*time.Second)
}

// IntervalDuration returns the period between poll cycle starts
func (p PollConfig) IntervalDuration() time.Duration {
	return parseDuration(p.Interval, 5*time.Second)
}

// MaxAgeDuration returns how long raw samples are kept
func (r RetentionConfig) MaxAgeDuration() time.Duration {
	return parseDuration(r.MaxAge, 24*time.Hour)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

func setDefaults(v *viper.Viper, service Service) {
	// Server defaults
	port, ok := defaultPorts[service]
	if !ok {
		port = 8080
	}
	v.SetDefault("server.port", port)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "production")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.compression", true)

	// Database defaults
	v.SetDefault("database.path", "./data/telemetry.db")
	v.SetDefault("database.max_connections", 8)
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.auto_migrate", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.prefix", "satwatch")
	v.SetDefault("metrics.system_metrics", true)

	// Security defaults
	v.SetDefault("security.enable_cors", true)
	v.SetDefault("security.allowed_origins", []string{"*"})

	// Aggregator client defaults
	v.SetDefault("aggregator.url", "http://localhost:8082")
	v.SetDefault("aggregator.connect_timeout", "2s")
	v.SetDefault("aggregator.read_timeout", "2s")
	v.SetDefault("aggregator.write_timeout", "2s")

	// Poll loop defaults
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("poll.concurrency", 1)

	// Threshold defaults
	v.SetDefault("thresholds.latency_p95_ms", 200.0)
	v.SetDefault("thresholds.drop_rate", 0.05)
	v.SetDefault("thresholds.min_link_quality", 0.7)
	v.SetDefault("thresholds.window_s", 600)

	v.SetDefault("watchlist", []string{"SAT-001", "SAT-002", "SAT-003", "SAT-004", "SAT-005"})

	// Retention defaults
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.schedule", "@every 1h")
	v.SetDefault("retention.max_age", "24h")
}
