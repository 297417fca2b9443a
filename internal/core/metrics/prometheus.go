package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// PrometheusCollector implements MetricsCollector on its own registry so
// several collectors can coexist in one process (and in tests).
type PrometheusCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Ingestion Metrics
	telemetryInserted   prometheus.Counter
	telemetryDuplicates prometheus.Counter
	retentionPruned     prometheus.Counter

	// Poll Loop Metrics
	pollCycles   prometheus.Counter
	pollFailures prometheus.Counter
	alertsTotal  *prometheus.CounterVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketMessages    *prometheus.CounterVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector
func NewPrometheusCollector(config *MetricsConfig) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "satwatch",
		}
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	ns := config.Prefix

	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	// Initialize HTTP metrics
	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "route", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)

	// Initialize ingestion metrics
	collector.telemetryInserted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "telemetry_inserted_total",
		Help:      "Telemetry samples stored",
	})

	collector.telemetryDuplicates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "telemetry_duplicates_total",
		Help:      "Telemetry samples ignored because the event id was already stored",
	})

	collector.retentionPruned = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "telemetry_pruned_total",
		Help:      "Telemetry samples deleted by retention",
	})

	// Initialize poll loop metrics
	collector.pollCycles = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "poll_cycles_total",
		Help:      "Completed poll cycles",
	})

	collector.pollFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "poll_failures_total",
		Help:      "Per-satellite stats fetches that failed",
	})

	collector.alertsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "alerts_total",
			Help:      "Alerts raised by type and severity",
		},
		[]string{"type", "severity"},
	)

	// Initialize WebSocket metrics
	collector.websocketConnections = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "websocket_connections",
		Help:      "Number of active WebSocket connections",
	})

	collector.websocketMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "websocket_messages_total",
			Help:      "Total number of WebSocket messages",
		},
		[]string{"direction"},
	)

	if config.SystemMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector.registerHostGauges(factory)
	}

	return collector
}

// registerHostGauges exposes host CPU and memory usage, sampled at scrape time
func (p *PrometheusCollector) registerHostGauges(factory promauto.Factory) {
	ns := p.config.Prefix

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "host_memory_used_percent",
		Help:      "Host memory in use, percent",
	}, func() float64 {
		vmem, err := mem.VirtualMemory()
		if err != nil {
			return 0
		}
		return vmem.UsedPercent
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "host_cpu_used_percent",
		Help:      "Host CPU in use since the previous scrape, percent",
	}, func() float64 {
		percent, err := cpu.Percent(0, false)
		if err != nil || len(percent) == 0 {
			return 0
		}
		return percent[0]
	})
}

// Registry returns the underlying registry
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records HTTP request metrics
func (p *PrometheusCollector) RecordHTTPRequest(route string, status int, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(p.config.Service, route, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(p.config.Service, route).Observe(duration.Seconds())
}

// RecordTelemetryInsert counts a stored sample or a duplicate
func (p *PrometheusCollector) RecordTelemetryInsert(inserted bool) {
	if inserted {
		p.telemetryInserted.Inc()
		return
	}
	p.telemetryDuplicates.Inc()
}

func (p *PrometheusCollector) RecordPollCycle()   { p.pollCycles.Inc() }
func (p *PrometheusCollector) RecordPollFailure() { p.pollFailures.Inc() }

// RecordAlert records alert metrics
func (p *PrometheusCollector) RecordAlert(kind, severity string) {
	p.alertsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordRetentionPrune records how many samples a retention run removed
func (p *PrometheusCollector) RecordRetentionPrune(deleted int64) {
	if deleted > 0 {
		p.retentionPruned.Add(float64(deleted))
	}
}

// RecordWebSocketConnection records WebSocket connection metrics
func (p *PrometheusCollector) RecordWebSocketConnection(action string) {
	switch action {
	case "connect":
		p.websocketConnections.Inc()
	case "disconnect":
		p.websocketConnections.Dec()
	case "message_sent":
		p.websocketMessages.WithLabelValues("outbound").Inc()
	case "message_received":
		p.websocketMessages.WithLabelValues("inbound").Inc()
	}
}
