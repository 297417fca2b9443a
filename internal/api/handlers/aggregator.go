package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/pkg/utils"
)

// DefaultWindowSeconds is used when window_s is absent
const DefaultWindowSeconds = 600

// StatsQuerier summarizes the samples of one satellite over a window
type StatsQuerier interface {
	Query(ctx context.Context, satID string, windowSeconds int) (aggregate.Report, error)
}

// AggregatorHandler serves window statistics
type AggregatorHandler struct {
	query StatsQuerier
	log   *logrus.Logger
}

func NewAggregatorHandler(query StatsQuerier, log *logrus.Logger) *AggregatorHandler {
	return &AggregatorHandler{query: query, log: log}
}

// GetMetrics answers GET /metrics?sat_id=&window_s=
func (h *AggregatorHandler) GetMetrics(c *gin.Context) {
	satID := c.Query("sat_id")
	if satID == "" {
		utils.SendAppError(c, errMissingSatID)
		return
	}

	window := parseWindow(c.DefaultQuery("window_s", strconv.Itoa(DefaultWindowSeconds)))

	report, err := h.query.Query(c.Request.Context(), satID, window)
	if err != nil {
		h.log.WithError(err).WithField("sat_id", satID).Error("Window query failed")
		utils.SendAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// parseWindow reads the leading integer of window_s: optional space and
// sign, then digits up to the first other character ("30s" is 30). No digits gives 0, which
// the query then clamps to one second. Out-of-range values saturate.
func parseWindow(raw string) int {
	s := strings.TrimLeft(raw, " \t\n\v\f\r")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil {
		if s[0] == '-' {
			return math.MinInt32
		}
		return math.MaxInt32
	}
	return int(n)
}
