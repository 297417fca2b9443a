package monitor

import (
	"context"
	"time"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	"github.com/sirupsen/logrus"
)

// ServiceConfig contains the initial control-plane settings
type ServiceConfig struct {
	Thresholds   alerting.Thresholds
	Watchlist    []string
	PollInterval time.Duration
	Concurrency  int
}

// Service is the control-plane runtime: it owns the config and state stores
// and the poll loop, and answers the status API.
type Service struct {
	config   *ConfigStore
	state    *StateStore
	counters *Counters
	poller   *Poller
	logger   *logrus.Logger
	now      func() time.Time
}

// PollStats reports poll loop totals
type PollStats struct {
	Cycles   int64 `json:"cycles"`
	Failures int64 `json:"failures"`
	NowMs    int64 `json:"now_ms"`
}

// StatusView is the per-satellite status returned by the alerts endpoint
type StatusView struct {
	OK         bool                `json:"ok"`
	SatID      string              `json:"sat_id"`
	Metrics    aggregate.Report    `json:"metrics"`
	Alerts     []alerting.Alert    `json:"alerts"`
	Thresholds alerting.Thresholds `json:"thresholds"`
	Poll       PollStats           `json:"poll"`
}

// FleetView is every satellite with state plus poll totals
type FleetView struct {
	OK          bool                    `json:"ok"`
	Entities    []EntityEntry           `json:"entities"`
	Watchlist   []string                `json:"watchlist"`
	AlertCounts map[alerting.Kind]int64 `json:"alert_counts"`
	Poll        PollStats               `json:"poll"`
}

// NewService builds the control-plane runtime. It fails if the initial
// thresholds or watchlist are invalid.
func NewService(cfg ServiceConfig, source StatsSource, logger *logrus.Logger) (*Service, error) {
	store, err := NewConfigStore(cfg.Thresholds, cfg.Watchlist)
	if err != nil {
		return nil, err
	}

	state := NewStateStore()
	counters := NewCounters()

	return &Service{
		config:   store,
		state:    state,
		counters: counters,
		poller:   NewPoller(source, store, state, counters, NewDispatcher(cfg.Concurrency), cfg.PollInterval, logger),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Poller returns the poll loop
func (s *Service) Poller() *Poller { return s.poller }

// Start starts the poll loop
func (s *Service) Start(ctx context.Context) error { return s.poller.Start(ctx) }

// Stop stops the poll loop
func (s *Service) Stop() error { return s.poller.Stop() }

// Status returns the latest state for satID. Unknown satellites get the
// "no data yet" placeholder and an empty alert list.
func (s *Service) Status(satID string) StatusView {
	state, _ := s.state.Get(satID)
	return StatusView{
		OK:         true,
		SatID:      satID,
		Metrics:    state.Metrics,
		Alerts:     state.Alerts,
		Thresholds: s.config.Thresholds(),
		Poll:       s.PollStats(),
	}
}

// Thresholds returns the current thresholds
func (s *Service) Thresholds() alerting.Thresholds { return s.config.Thresholds() }

// UpdateThresholds merges patch into the thresholds. The next cycle picks
// the change up.
func (s *Service) UpdateThresholds(patch alerting.ThresholdsPatch) (alerting.Thresholds, error) {
	t, err := s.config.MergeThresholds(patch)
	if err != nil {
		return t, err
	}
	s.logger.WithFields(logrus.Fields{
		"latency_p95_ms":   t.LatencyP95Ms,
		"drop_rate":        t.DropRate,
		"min_link_quality": t.MinLinkQuality,
		"window_s":         t.WindowSeconds,
	}).Info("Thresholds updated")
	return t, nil
}

// Watchlist returns the watched satellite ids
func (s *Service) Watchlist() []string { return s.config.Watchlist() }

// ReplaceWatchlist replaces the watched satellites
func (s *Service) ReplaceWatchlist(ids []string) ([]string, error) {
	next, err := s.config.ReplaceWatchlist(ids)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("sats", next).Info("Watchlist replaced")
	return next, nil
}

// Fleet returns every satellite that has been polled successfully
func (s *Service) Fleet() FleetView {
	return FleetView{
		OK:          true,
		Entities:    s.state.Snapshot(),
		Watchlist:   s.config.Watchlist(),
		AlertCounts: s.counters.AlertCounts(),
		Poll:        s.PollStats(),
	}
}

// AlertCounts returns the number of alerts raised per kind since start
func (s *Service) AlertCounts() map[alerting.Kind]int64 {
	return s.counters.AlertCounts()
}

// PollStats returns poll loop totals stamped with the current time
func (s *Service) PollStats() PollStats {
	return PollStats{
		Cycles:   s.counters.Cycles(),
		Failures: s.counters.Failures(),
		NowMs:    s.now().UnixMilli(),
	}
}
