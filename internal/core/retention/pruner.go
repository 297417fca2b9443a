package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SampleDeleter is the delete side of the raw sample store
type SampleDeleter interface {
	DeleteBefore(ctx context.Context, ts int64) (int64, error)
}

// PruneRecorder receives the number of samples each run removed
type PruneRecorder interface {
	RecordRetentionPrune(deleted int64)
}

// Config controls the pruning job
type Config struct {
	Schedule string        // standard cron spec or descriptor such as "@every 1h"
	MaxAge   time.Duration // samples older than this are deleted
	Timeout  time.Duration // bound on a single run
}

// Pruner periodically deletes raw samples older than MaxAge
type Pruner struct {
	config   Config
	store    SampleDeleter
	recorder PruneRecorder
	logger   *logrus.Logger
	cron     *cron.Cron
	now      func() time.Time

	running bool
	mu      sync.Mutex
}

// NewPruner validates the schedule and creates a stopped pruner
func NewPruner(config Config, store SampleDeleter, recorder PruneRecorder, logger *logrus.Logger) (*Pruner, error) {
	if config.MaxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive")
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	p := &Pruner{
		config:   config,
		store:    store,
		recorder: recorder,
		logger:   logger,
		cron:     c,
		now:      time.Now,
	}

	if _, err := c.AddFunc(config.Schedule, p.runScheduled); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", config.Schedule, err)
	}

	return p, nil
}

// Start starts the schedule
func (p *Pruner) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("retention pruner is already running")
	}

	p.cron.Start()
	p.running = true
	p.logger.WithFields(logrus.Fields{
		"schedule": p.config.Schedule,
		"max_age":  p.config.MaxAge,
	}).Info("Retention pruner started")

	return nil
}

// Stop stops the schedule and waits up to ctx for a running prune to finish
func (p *Pruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	done := p.cron.Stop()
	p.running = false

	select {
	case <-done.Done():
		p.logger.Info("Retention pruner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for retention run: %w", ctx.Err())
	}
}

// NextRun returns when the job fires next, zero if not running
func (p *Pruner) NextRun() time.Time {
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (p *Pruner) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	if _, err := p.RunOnce(ctx); err != nil {
		p.logger.WithError(err).Error("Retention run failed")
	}
}

// RunOnce deletes samples older than MaxAge relative to now
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.config.MaxAge).UnixMilli()

	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if p.recorder != nil {
		p.recorder.RecordRetentionPrune(deleted)
	}

	p.logger.WithFields(logrus.Fields{
		"deleted":   deleted,
		"cutoff_ms": cutoff,
	}).Info("Pruned old telemetry")

	return deleted, nil
}
