package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	"github.com/frostdev-ops/satwatch/internal/core/monitor"
	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
	"github.com/frostdev-ops/satwatch/pkg/utils"
)

// ControlPlaneHandler serves the status and configuration API
type ControlPlaneHandler struct {
	svc *monitor.Service
	log *logrus.Logger
}

func NewControlPlaneHandler(svc *monitor.Service, log *logrus.Logger) *ControlPlaneHandler {
	return &ControlPlaneHandler{svc: svc, log: log}
}

// GetAlerts returns the latest metrics and alerts for sat_id
func (h *ControlPlaneHandler) GetAlerts(c *gin.Context) {
	satID := c.Query("sat_id")
	if satID == "" {
		utils.SendAppError(c, errMissingSatID)
		return
	}
	c.JSON(http.StatusOK, h.svc.Status(satID))
}

// GetConfig returns the current thresholds
func (h *ControlPlaneHandler) GetConfig(c *gin.Context) {
	utils.SendOK(c, http.StatusOK, gin.H{"thresholds": h.svc.Thresholds()})
}

// PostConfig merges the fields present in the body into the thresholds.
// Nothing changes unless the merged result is valid.
func (h *ControlPlaneHandler) PostConfig(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		utils.SendAppError(c, badBody("invalid json", err))
		return
	}

	patch, err := alerting.ParseThresholdsPatch(body)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	thresholds, err := h.svc.UpdateThresholds(patch)
	if err != nil {
		h.sendUpdateError(c, err)
		return
	}

	utils.SendOK(c, http.StatusOK, gin.H{"thresholds": thresholds})
}

// GetWatched returns the watchlist
func (h *ControlPlaneHandler) GetWatched(c *gin.Context) {
	utils.SendOK(c, http.StatusOK, gin.H{"sats": h.svc.Watchlist()})
}

// PostWatched replaces the watchlist with {"sats":[...]}. Entries that are
// not strings are skipped.
func (h *ControlPlaneHandler) PostWatched(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		utils.SendAppError(c, badBody("invalid json", err))
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.SendAppError(c, badBody("invalid json", err))
		return
	}

	raw, ok := payload["sats"].([]interface{})
	if !ok {
		utils.SendAppError(c, apperrors.BadRequestf(`expected {"sats":[...]}`))
		return
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}

	sats, err := h.svc.ReplaceWatchlist(ids)
	if err != nil {
		h.sendUpdateError(c, err)
		return
	}

	utils.SendOK(c, http.StatusOK, gin.H{"sats": sats})
}

// sendUpdateError answers a rejected update. Anything other than an
// AppError is unexpected and gets logged.
func (h *ControlPlaneHandler) sendUpdateError(c *gin.Context, err error) {
	if !apperrors.IsAppError(err) {
		h.log.WithError(err).Error("Control plane update failed")
	}
	utils.SendAppError(c, err)
}

// GetFleet returns every satellite with state, the watchlist and poll totals
func (h *ControlPlaneHandler) GetFleet(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Fleet())
}
