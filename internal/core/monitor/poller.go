package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is the period between cycle starts
const DefaultPollInterval = 5 * time.Second

// StatsSource fetches window stats for one satellite. A returned error means
// the stats could not be obtained at all (transport failure, bad status,
// undecodable body); a report with OK false is a valid answer.
type StatsSource interface {
	FetchStats(ctx context.Context, satID string, windowSeconds int) (aggregate.Report, error)
}

// Recorder receives poll loop events for metrics export
type Recorder interface {
	RecordPollCycle()
	RecordPollFailure()
	RecordAlert(kind, severity string)
}

// Publisher is notified after a satellite's state is replaced
type Publisher interface {
	PublishEntityState(satID string, state EntityState)
}

// Poller periodically fetches stats for every watched satellite, evaluates
// them and stores the result.
type Poller struct {
	source     StatsSource
	config     *ConfigStore
	state      *StateStore
	counters   *Counters
	dispatcher Dispatcher
	interval   time.Duration
	logger     *logrus.Logger
	recorder   Recorder
	publisher  Publisher
	now        func() time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewPoller creates a poller. A nil dispatcher polls sequentially; a
// non-positive interval uses DefaultPollInterval.
func NewPoller(source StatsSource, config *ConfigStore, state *StateStore, counters *Counters, dispatcher Dispatcher, interval time.Duration, logger *logrus.Logger) *Poller {
	if dispatcher == nil {
		dispatcher = SequentialDispatcher{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:     source,
		config:     config,
		state:      state,
		counters:   counters,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
		now:        time.Now,
	}
}

// SetRecorder sets the metrics recorder. Call before Start.
func (p *Poller) SetRecorder(r Recorder) { p.recorder = r }

// SetPublisher sets the state update publisher. Call before Start.
func (p *Poller) SetPublisher(pub Publisher) { p.publisher = pub }

// Start runs the poll loop in the background until Stop or ctx is done
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Run(runCtx)
	}()

	p.logger.WithField("interval", p.interval).Info("Poll loop started")
	return nil
}

// Stop asks the loop to exit and waits for it. A fetch already in flight
// runs to completion.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.cancel()
	p.wg.Wait()

	p.running = false
	p.logger.Info("Poll loop stopped")
	return nil
}

// Run drives cycles until ctx is done. The first cycle starts immediately;
// later ones start every interval. A cycle that overruns is followed at once
// by the next.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		p.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle polls every watched satellite once against a single snapshot of
// the thresholds and watchlist.
func (p *Poller) RunCycle(ctx context.Context) {
	start := p.now()
	thresholds := p.config.Thresholds()
	ids := p.config.Watchlist()

	defer func() {
		p.counters.IncCycles()
		if p.recorder != nil {
			p.recorder.RecordPollCycle()
		}
		p.logger.WithFields(logrus.Fields{
			"satellites": len(ids),
			"duration":   p.now().Sub(start),
			"cycles":     p.counters.Cycles(),
			"failures":   p.counters.Failures(),
		}).Debug("Poll cycle complete")
	}()

	p.dispatcher.Dispatch(ctx, ids, func(ctx context.Context, satID string) {
		p.pollSatellite(context.WithoutCancel(ctx), satID, thresholds)
	})
}

func (p *Poller) pollSatellite(ctx context.Context, satID string, thresholds alerting.Thresholds) {
	report, err := p.source.FetchStats(ctx, satID, thresholds.WindowSeconds)
	if err != nil {
		p.counters.IncFailures()
		if p.recorder != nil {
			p.recorder.RecordPollFailure()
		}
		p.logger.WithError(err).WithField("sat_id", satID).Warn("Failed to fetch window stats")
		return
	}

	alerts := alerting.Evaluate(report, thresholds)
	state := p.state.Set(satID, report, alerts, p.now())
	p.counters.AddAlerts(alerts)

	if p.recorder != nil {
		for _, a := range alerts {
			p.recorder.RecordAlert(string(a.Kind), string(a.Severity))
		}
	}
	if p.publisher != nil {
		p.publisher.PublishEntityState(satID, state)
	}

	if len(alerts) > 0 {
		p.logger.WithFields(logrus.Fields{
			"sat_id": satID,
			"alerts": len(alerts),
		}).Debug("Satellite has active alerts")
	}
}
