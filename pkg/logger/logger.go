package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestMetrics holds metrics for a specific endpoint
type RequestMetrics struct {
	Count      int           `json:"count"`
	TotalTime  time.Duration `json:"total_time"`
	MinLatency time.Duration `json:"min_latency"`
	MaxLatency time.Duration `json:"max_latency"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// BatchLogger wraps logrus.Logger and folds successful requests into periodic
// summaries. The control plane polls the aggregator every few seconds for
// every watched satellite, so logging each 200 individually is pure noise.
type BatchLogger struct {
	*logrus.Logger
	metrics    map[string]*RequestMetrics
	batchCount int
	mutex      sync.Mutex
	batchSize  int
}

// New creates a logger with the given level ("debug", "info", ...) and
// format ("json" or "text"). Unknown levels fall back to info.
func New(level, format string) *BatchLogger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput is New writing to out instead of stdout
func NewWithOutput(level, format string, out io.Writer) *BatchLogger {
	log := logrus.New()

	if strings.ToLower(format) == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
				logrus.FieldKeyFunc:  "func",
			},
		})
	}

	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return &BatchLogger{
		Logger:    log,
		metrics:   make(map[string]*RequestMetrics),
		batchSize: 100,
	}
}

// SetBatchSize changes how many successful requests are folded into one summary
func (bl *BatchLogger) SetBatchSize(n int) {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()
	if n > 0 {
		bl.batchSize = n
	}
}

// LogRequest logs a request, batching 200 status codes
func (bl *BatchLogger) LogRequest(method, endpoint string, statusCode int, latency time.Duration, fields logrus.Fields) {
	if statusCode == 200 {
		bl.batchSuccess(method, endpoint, latency)
		return
	}

	entry := bl.WithFields(fields)
	if statusCode >= 500 {
		entry.Errorf("%s %s - Status: %d, Latency: %v", method, endpoint, statusCode, latency)
	} else if statusCode >= 400 {
		entry.Warnf("%s %s - Status: %d, Latency: %v", method, endpoint, statusCode, latency)
	} else {
		entry.Infof("%s %s - Status: %d, Latency: %v", method, endpoint, statusCode, latency)
	}
}

func (bl *BatchLogger) batchSuccess(method, endpoint string, latency time.Duration) {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()

	key := method + " " + endpoint

	if bl.metrics[key] == nil {
		bl.metrics[key] = &RequestMetrics{
			MinLatency: latency,
			MaxLatency: latency,
		}
	}

	metrics := bl.metrics[key]
	metrics.Count++
	metrics.TotalTime += latency

	if latency < metrics.MinLatency {
		metrics.MinLatency = latency
	}
	if latency > metrics.MaxLatency {
		metrics.MaxLatency = latency
	}
	metrics.AvgLatency = metrics.TotalTime / time.Duration(metrics.Count)

	bl.batchCount++

	if bl.batchCount >= bl.batchSize {
		bl.flushBatch()
	}
}

// flushBatch sends a summary of batched requests. Caller holds the mutex.
func (bl *BatchLogger) flushBatch() {
	if bl.batchCount == 0 {
		return
	}

	bl.WithFields(logrus.Fields{
		"batch_summary":  true,
		"total_requests": bl.batchCount,
		"endpoints":      bl.metrics,
	}).Info("Request batch summary (200 status codes)")

	bl.metrics = make(map[string]*RequestMetrics)
	bl.batchCount = 0
}

// FlushPending forces a flush of any pending batch data
func (bl *BatchLogger) FlushPending() {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()
	bl.flushBatch()
}

// FlushEvery flushes pending summaries every interval until ctx is done,
// then flushes once more.
func (bl *BatchLogger) FlushEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bl.FlushPending()
			return
		case <-ticker.C:
			bl.FlushPending()
		}
	}
}

// WithContext returns a logger with common context fields
func WithContext(log *BatchLogger, fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}
