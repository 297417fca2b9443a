package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/satwatch/internal/core/metrics"
)

// UnmatchedRoute labels requests that hit no registered route, keeping the
// route label bounded.
const UnmatchedRoute = "unmatched"

// MetricsMiddleware creates middleware for collecting HTTP metrics
func MetricsMiddleware(collector metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnmatchedRoute
		}
		if collector != nil {
			collector.RecordHTTPRequest(route, c.Writer.Status(), time.Since(start))
		}
	}
}
