package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/satwatch/pkg/logger"
)

// LoggingMiddleware hands every finished request to the batch logger, which
// summarizes 200s and logs everything else immediately.
func LoggingMiddleware(log *logger.BatchLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			fields["query"] = query
		}
		if len(c.Errors) > 0 {
			fields["error_message"] = c.Errors.String()
		}

		log.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), fields)
	}
}
