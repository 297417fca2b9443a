package sqlite

import (
	"context"
	"fmt"

	"github.com/frostdev-ops/satwatch/internal/database/models"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type TelemetryRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewTelemetryRepository(db *sqlx.DB, log *logrus.Logger) *TelemetryRepository {
	return &TelemetryRepository{
		db:  db,
		log: log,
	}
}

func (r *TelemetryRepository) Insert(ctx context.Context, sample *models.Sample) (bool, error) {
	query := `INSERT OR IGNORE INTO telemetry
			  (event_id, sat_id, ts_ms, latency_ms, dropped_packets, sent_packets, link_quality)
			  VALUES (:event_id, :sat_id, :ts_ms, :latency_ms, :dropped_packets, :sent_packets, :link_quality)`

	result, err := r.db.NamedExecContext(ctx, query, sample)
	if err != nil {
		r.log.WithError(err).WithField("event_id", sample.EventID).Error("Failed to insert telemetry")
		return false, fmt.Errorf("failed to insert telemetry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	return affected == 1, nil
}

func (r *TelemetryRepository) SamplesSince(ctx context.Context, satID string, minTs int64) ([]models.Sample, error) {
	query := `SELECT event_id, sat_id, ts_ms, latency_ms, dropped_packets, sent_packets, link_quality
			  FROM telemetry WHERE sat_id = ? AND ts_ms >= ? ORDER BY ts_ms`

	samples := []models.Sample{}
	if err := r.db.SelectContext(ctx, &samples, query, satID, minTs); err != nil {
		r.log.WithError(err).WithField("sat_id", satID).Error("Failed to query telemetry")
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}

	return samples, nil
}

func (r *TelemetryRepository) DeleteBefore(ctx context.Context, ts int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM telemetry WHERE ts_ms < ?`, ts)
	if err != nil {
		r.log.WithError(err).Error("Failed to prune telemetry")
		return 0, fmt.Errorf("failed to prune telemetry: %w", err)
	}

	return result.RowsAffected()
}

func (r *TelemetryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
