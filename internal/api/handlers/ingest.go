package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/satwatch/internal/core/metrics"
	"github.com/frostdev-ops/satwatch/internal/database/models"
	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
	"github.com/frostdev-ops/satwatch/pkg/utils"
)

// SampleStore stores raw samples idempotently by event id
type SampleStore interface {
	Insert(ctx context.Context, sample *models.Sample) (bool, error)
}

// IngestHandler accepts raw telemetry samples
type IngestHandler struct {
	store     SampleStore
	collector metrics.MetricsCollector
	log       *logrus.Logger
}

func NewIngestHandler(store SampleStore, collector metrics.MetricsCollector, log *logrus.Logger) *IngestHandler {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &IngestHandler{store: store, collector: collector, log: log}
}

// PostTelemetry validates and stores one sample. Replaying an event id
// answers inserted:false.
func (h *IngestHandler) PostTelemetry(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		utils.SendAppError(c, badBody("invalid body", err))
		return
	}

	sample, err := models.ParseSample(body)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	inserted, err := h.store.Insert(c.Request.Context(), sample)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"event_id": sample.EventID,
			"sat_id":   sample.SatID,
		}).Error("Failed to store telemetry sample")
		utils.SendAppError(c, apperrors.Internalf("storage error"))
		return
	}

	h.collector.RecordTelemetryInsert(inserted)
	utils.SendOK(c, http.StatusAccepted, gin.H{"inserted": inserted})
}
