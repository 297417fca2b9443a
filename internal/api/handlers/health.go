package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/satwatch/internal/core/metrics"
	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
	"github.com/frostdev-ops/satwatch/pkg/utils"
	"github.com/frostdev-ops/satwatch/pkg/version"
)

// HealthHandler serves liveness and readiness for one service
type HealthHandler struct {
	service string
	checker *metrics.HealthChecker
}

// NewHealthHandler creates a health handler. A nil checker means the service
// is always ready.
func NewHealthHandler(service string, checker *metrics.HealthChecker) *HealthHandler {
	return &HealthHandler{service: service, checker: checker}
}

// Health reports that the process is up
func (h *HealthHandler) Health(c *gin.Context) {
	utils.SendOK(c, http.StatusOK, gin.H{
		"service":   h.service,
		"version":   version.GetVersion(),
		"build":     version.GetBuildInfo(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready runs the registered dependency checks. The first failing check's
// message is returned with 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.checker == nil {
		utils.SendOK(c, http.StatusOK, nil)
		return
	}

	report := h.checker.Check(c.Request.Context())
	if !report.IsHealthy() {
		unavailable := apperrors.Unavailablef("%s", report.Message)
		c.JSON(unavailable.Code, gin.H{
			"ok":         false,
			"error":      unavailable.Message,
			"components": report.Components,
		})
		return
	}

	utils.SendOK(c, http.StatusOK, gin.H{"components": report.Components})
}
