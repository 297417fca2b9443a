package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/frostdev-ops/satwatch/internal/database/models"
	"github.com/sirupsen/logrus"
)

// SampleSource is the read side of the raw sample store
type SampleSource interface {
	SamplesSince(ctx context.Context, satID string, minTs int64) ([]models.Sample, error)
}

// Service answers window queries from the sample store
type Service struct {
	source SampleSource
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a new aggregation service
func NewService(source SampleSource, logger *logrus.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Query summarizes satID's samples from the last windowSeconds. Windows
// below one second are raised to one second.
func (s *Service) Query(ctx context.Context, satID string, windowSeconds int) (Report, error) {
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	minTs := s.now().UnixMilli() - int64(windowSeconds)*1000

	samples, err := s.source.SamplesSince(ctx, satID, minTs)
	if err != nil {
		return Report{}, fmt.Errorf("query window for %s: %w", satID, err)
	}

	stats := Summarize(satID, windowSeconds, samples)

	s.logger.WithFields(logrus.Fields{
		"sat_id":   satID,
		"window_s": windowSeconds,
		"count":    stats.Count,
	}).Debug("Computed window stats")

	return Report{OK: true, WindowStats: stats}, nil
}
