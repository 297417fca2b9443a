package metrics

import (
	"net/http"
	"time"
)

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	RecordHTTPRequest(route string, status int, duration time.Duration)
	RecordTelemetryInsert(inserted bool)
	RecordPollCycle()
	RecordPollFailure()
	RecordAlert(kind, severity string)
	RecordRetentionPrune(deleted int64)
	RecordWebSocketConnection(action string)
	// Handler serves the exposition format
	Handler() http.Handler
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled       bool
	Prefix        string
	Service       string
	SystemMetrics bool
}

// NoopCollector discards everything. Handler answers 404.
type NoopCollector struct{}

func (NoopCollector) RecordHTTPRequest(string, int, time.Duration) {}
func (NoopCollector) RecordTelemetryInsert(bool)                   {}
func (NoopCollector) RecordPollCycle()                             {}
func (NoopCollector) RecordPollFailure()                           {}
func (NoopCollector) RecordAlert(string, string)                   {}
func (NoopCollector) RecordRetentionPrune(int64)                   {}
func (NoopCollector) RecordWebSocketConnection(string)             {}
func (NoopCollector) Handler() http.Handler                        { return http.NotFoundHandler() }

// New returns a Prometheus collector, or a NoopCollector when disabled
func New(config *MetricsConfig) MetricsCollector {
	if config == nil || !config.Enabled {
		return NoopCollector{}
	}
	return NewPrometheusCollector(config)
}
