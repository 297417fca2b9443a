package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/satwatch/pkg/utils"
)

// ErrorHandlingMiddleware recovers panics, logs them with the stack and
// answers 500 {"ok":false}.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		var detail string
		switch err := recovered.(type) {
		case error:
			detail = err.Error()
		case string:
			detail = err
		default:
			detail = fmt.Sprintf("%+v", recovered)
		}

		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"ip":          c.ClientIP(),
			"panic":       detail,
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in API middleware")

		if !c.Writer.Written() {
			utils.SendError(c, http.StatusInternalServerError, "internal server error")
		}
		c.Abort()
	})
}
