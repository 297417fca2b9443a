package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSendOK(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendOK(c, http.StatusAccepted, gin.H{"inserted": true})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, map[string]interface{}{"ok": true, "inserted": true}, decode(t, w))
}

func TestSendAppError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendAppError(c, apperrors.Validationf("sat_id invalid"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, map[string]interface{}{"ok": false, "error": "sat_id invalid"}, decode(t, w))
}

func TestSendNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/alert", nil)

	SendNotFound(c, []string{"/alerts", "/config", "/health"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "endpoint not found: GET /alert", body["error"])
	assert.Equal(t, []interface{}{"/alerts"}, body["suggestions"])
}

func TestNotFoundSuggestions(t *testing.T) {
	endpoints := []string{"/watched", "/alerts", "/config", "/fleet", "/health", "/ready", "/ws"}

	assert.Equal(t, []string{"/watched"}, NotFoundSuggestions("/api/watched", endpoints))
	assert.Equal(t, []string{"/config"}, NotFoundSuggestions("/configuration", endpoints))

	all := NotFoundSuggestions("/zz", endpoints)
	assert.Len(t, all, 5)
	assert.Equal(t, "/alerts", all[0])
}
