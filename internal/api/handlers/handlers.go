// Package handlers holds the gin handlers of the ingest, aggregator and
// control-plane services. Every JSON answer carries "ok"; failures add
// "error".
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
)

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 1 << 20

func readBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	return io.ReadAll(c.Request.Body)
}

func badBody(prefix string, err error) error {
	return apperrors.WithDetails(apperrors.BadRequestf("%s", prefix), err.Error())
}

var errMissingSatID = apperrors.BadRequestf("missing sat_id")
