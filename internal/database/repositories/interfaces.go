package repositories

import (
	"context"

	"github.com/frostdev-ops/satwatch/internal/database/models"
)

// TelemetryRepository defines raw sample data access methods
type TelemetryRepository interface {
	// Insert stores a sample unless one with the same event id exists.
	// inserted is false for a duplicate.
	Insert(ctx context.Context, sample *models.Sample) (inserted bool, err error)
	// SamplesSince returns a satellite's samples with ts_ms >= minTs, oldest first
	SamplesSince(ctx context.Context, satID string, minTs int64) ([]models.Sample, error)
	// DeleteBefore removes samples with ts_ms < ts and reports how many went
	DeleteBefore(ctx context.Context, ts int64) (int64, error)
	Ping(ctx context.Context) error
}
