package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/frostdev-ops/satwatch/internal/database/models"
)

// Config controls a load run
type Config struct {
	URL      string
	QPS      float64
	Duration time.Duration
	Workers  int
	Timeout  time.Duration
}

// Result summarizes a finished run
type Result struct {
	Sent       int64         `json:"sent"`
	Inserted   int64         `json:"inserted"`
	Duplicates int64         `json:"duplicates"`
	Failed     int64         `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
}

// EventsPerSecond is the achieved rate of accepted samples
func (r Result) EventsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Sent) / r.Elapsed.Seconds()
}

// Runner posts generated samples to an ingest service at a fixed rate
type Runner struct {
	config    Config
	generator *Generator
	client    *http.Client
	logger    *logrus.Logger
	now       func() time.Time

	sent       atomic.Int64
	inserted   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

func NewRunner(config Config, generator *Generator, logger *logrus.Logger) (*Runner, error) {
	if config.QPS <= 0 {
		return nil, fmt.Errorf("qps must be positive")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	config.URL = strings.TrimRight(config.URL, "/") + "/telemetry"

	return &Runner{
		config:    config,
		generator: generator,
		client:    &http.Client{Timeout: config.Timeout},
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run sends samples until Duration elapses or ctx is cancelled. Failed posts
// are counted and skipped.
func (r *Runner) Run(ctx context.Context) Result {
	start := r.now()
	period := time.Duration(float64(time.Second) / r.config.QPS)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if r.config.Duration > 0 {
		timer := time.NewTimer(r.config.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	p := pool.New().WithMaxGoroutines(r.config.Workers)

loop:
	for {
		now := r.now()
		sample := r.generator.Next(now.Sub(start), now)
		p.Go(func() {
			r.post(ctx, sample)
		})

		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case <-ticker.C:
		}
	}

	p.Wait()

	return Result{
		Sent:       r.sent.Load(),
		Inserted:   r.inserted.Load(),
		Duplicates: r.duplicates.Load(),
		Failed:     r.failed.Load(),
		Elapsed:    r.now().Sub(start),
	}
}

func (r *Runner) post(ctx context.Context, sample models.Sample) {
	body, err := json.Marshal(sample)
	if err != nil {
		r.failed.Add(1)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.URL, bytes.NewReader(body))
	if err != nil {
		r.failed.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.failed.Add(1)
		r.logger.WithError(err).Debug("Telemetry post failed")
		return
	}
	defer resp.Body.Close()

	var ack struct {
		OK       bool `json:"ok"`
		Inserted bool `json:"inserted"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusAccepted || json.Unmarshal(data, &ack) != nil || !ack.OK {
		r.failed.Add(1)
		r.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(string(data)),
		}).Debug("Telemetry post rejected")
		return
	}

	r.sent.Add(1)
	if ack.Inserted {
		r.inserted.Add(1)
	} else {
		r.duplicates.Add(1)
	}
}
