package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	"github.com/frostdev-ops/satwatch/internal/core/monitor"
)

type stubSource struct {
	reports map[string]aggregate.Report
}

func (s *stubSource) FetchStats(_ context.Context, satID string, windowSeconds int) (aggregate.Report, error) {
	report, ok := s.reports[satID]
	if !ok {
		return aggregate.Report{}, errors.New("connection refused")
	}
	report.WindowSeconds = windowSeconds
	return report, nil
}

type ControlPlaneTestSuite struct {
	suite.Suite
	source *stubSource
	svc    *monitor.Service
	router *gin.Engine
}

func (s *ControlPlaneTestSuite) SetupTest() {
	s.source = &stubSource{reports: map[string]aggregate.Report{
		"SAT-001": {OK: true, WindowStats: aggregate.WindowStats{
			SatID: "SAT-001", Count: 10, LatencyP95Ms: 450, DropRate: 0.01, AvgLinkQuality: 0.95,
		}},
		"SAT-002": aggregate.FailedReport("db error"),
	}}

	svc, err := monitor.NewService(monitor.ServiceConfig{
		Thresholds:   alerting.DefaultThresholds(),
		Watchlist:    []string{"SAT-001", "SAT-002", "SAT-003"},
		PollInterval: time.Hour,
		Concurrency:  1,
	}, s.source, nullLogger())
	s.Require().NoError(err)
	s.svc = svc

	h := NewControlPlaneHandler(svc, nullLogger())
	router := gin.New()
	router.GET("/alerts", h.GetAlerts)
	router.GET("/config", h.GetConfig)
	router.POST("/config", h.PostConfig)
	router.GET("/watched", h.GetWatched)
	router.POST("/watched", h.PostWatched)
	router.GET("/fleet", h.GetFleet)
	s.router = router
}

func (s *ControlPlaneTestSuite) decode(body []byte) map[string]interface{} {
	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal(body, &out))
	return out
}

func (s *ControlPlaneTestSuite) TestAlertsRequiresSatID() {
	w := getPath(s.router, "/alerts")
	s.Equal(http.StatusBadRequest, w.Code)
	s.JSONEq(`{"ok":false,"error":"missing sat_id"}`, w.Body.String())
}

func (s *ControlPlaneTestSuite) TestAlertsBeforeFirstPoll() {
	w := getPath(s.router, "/alerts?sat_id=SAT-001")
	s.Require().Equal(http.StatusOK, w.Code)

	body := s.decode(w.Body.Bytes())
	s.Equal(true, body["ok"])
	s.Equal("SAT-001", body["sat_id"])
	s.Equal(map[string]interface{}{"ok": false, "error": "no data yet"}, body["metrics"])
	s.Equal([]interface{}{}, body["alerts"])
}

func (s *ControlPlaneTestSuite) TestAlertsAfterPoll() {
	s.svc.Poller().RunCycle(context.Background())

	body := s.decode(getPath(s.router, "/alerts?sat_id=SAT-001").Body.Bytes())
	alerts := body["alerts"].([]interface{})
	s.Require().Len(alerts, 1)
	alert := alerts[0].(map[string]interface{})
	s.Equal("MED", alert["severity"])
	s.Equal("LATENCY_P95", alert["type"])
	s.Equal(450.0, alert["value"])
	s.Equal(200.0, alert["threshold"])

	body = s.decode(getPath(s.router, "/alerts?sat_id=SAT-002").Body.Bytes())
	s.Equal(map[string]interface{}{"ok": false, "error": "db error"}, body["metrics"])
	alerts = body["alerts"].([]interface{})
	s.Require().Len(alerts, 1)
	s.Equal("AGGREGATOR_ERROR", alerts[0].(map[string]interface{})["type"])
	s.Equal("HIGH", alerts[0].(map[string]interface{})["severity"])

	poll := body["poll"].(map[string]interface{})
	s.Equal(1.0, poll["cycles"])
	s.Equal(1.0, poll["failures"])
}

func (s *ControlPlaneTestSuite) TestPostConfigMergesPartially() {
	w := postJSON(s.router, "/config", `{"drop_rate":0.2}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"ok":true,"thresholds":{"latency_p95_ms":200,"drop_rate":0.2,"min_link_quality":0.7,"window_s":600}}`, w.Body.String())

	w = getPath(s.router, "/config")
	s.JSONEq(`{"ok":true,"thresholds":{"latency_p95_ms":200,"drop_rate":0.2,"min_link_quality":0.7,"window_s":600}}`, w.Body.String())
}

func (s *ControlPlaneTestSuite) TestPostConfigRejectsBadInput() {
	for _, body := range []string{`{`, `{"drop_rate":"high"}`, `{"drop_rate":null}`, `{"window_s":5.5}`} {
		w := postJSON(s.router, "/config", body)
		s.Equal(http.StatusBadRequest, w.Code, body)
		s.Contains(s.decode(w.Body.Bytes())["error"], "invalid json: ")
	}

	w := postJSON(s.router, "/config", `{"drop_rate":0.3,"window_s":0}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(false, s.decode(w.Body.Bytes())["ok"])
	s.Equal(alerting.DefaultThresholds(), s.svc.Thresholds(), "rejected update must not apply partially")
}

func (s *ControlPlaneTestSuite) TestPostConfigAcceptsWholeFloatWindow() {
	w := postJSON(s.router, "/config", `{"window_s":30.0}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(30, s.svc.Thresholds().WindowSeconds)
}

func (s *ControlPlaneTestSuite) TestPostConfigNullLeavesThresholds() {
	w := postJSON(s.router, "/config", `{"latency_p95_ms":300,"drop_rate":null}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid json: drop_rate must be a number", s.decode(w.Body.Bytes())["error"])
	s.Equal(alerting.DefaultThresholds(), s.svc.Thresholds())
}

func (s *ControlPlaneTestSuite) TestWatched() {
	w := getPath(s.router, "/watched")
	s.JSONEq(`{"ok":true,"sats":["SAT-001","SAT-002","SAT-003"]}`, w.Body.String())

	w = postJSON(s.router, "/watched", `{"sats":["SAT-009", 7, " SAT-010 ", "SAT-009", null]}`)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"ok":true,"sats":["SAT-009","SAT-010"]}`, w.Body.String())
	s.Equal([]string{"SAT-009", "SAT-010"}, s.svc.Watchlist())
}

func (s *ControlPlaneTestSuite) TestWatchedRejectsBadInput() {
	tests := []struct {
		body  string
		error string
	}{
		{`{"sats":[]}`, "sats must be non-empty"},
		{`{"sats":[1,2]}`, "sats must be non-empty"},
		{`{"sats":"SAT-001"}`, `expected {"sats":[...]}`},
		{`{}`, `expected {"sats":[...]}`},
	}
	for _, tt := range tests {
		w := postJSON(s.router, "/watched", tt.body)
		s.Equal(http.StatusBadRequest, w.Code, tt.body)
		s.Equal(tt.error, s.decode(w.Body.Bytes())["error"], tt.body)
	}

	w := postJSON(s.router, "/watched", `nope`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(s.decode(w.Body.Bytes())["error"], "invalid json: ")

	s.Equal([]string{"SAT-001", "SAT-002", "SAT-003"}, s.svc.Watchlist())
}

func (s *ControlPlaneTestSuite) TestFleet() {
	s.svc.Poller().RunCycle(context.Background())

	w := getPath(s.router, "/fleet")
	s.Require().Equal(http.StatusOK, w.Code)

	var fleet struct {
		OK       bool `json:"ok"`
		Entities []struct {
			SatID string `json:"sat_id"`
		} `json:"entities"`
		AlertCounts map[string]int64 `json:"alert_counts"`
		Poll        struct {
			Cycles   int64 `json:"cycles"`
			Failures int64 `json:"failures"`
		} `json:"poll"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &fleet))
	s.True(fleet.OK)
	s.Require().Len(fleet.Entities, 2)
	s.Equal("SAT-001", fleet.Entities[0].SatID)
	s.Equal("SAT-002", fleet.Entities[1].SatID)
	s.Equal(int64(1), fleet.AlertCounts["LATENCY_P95"])
	s.Equal(int64(1), fleet.AlertCounts["AGGREGATOR_ERROR"])
	s.Equal(int64(1), fleet.Poll.Cycles)
	s.Equal(int64(1), fleet.Poll.Failures)
}

func TestControlPlaneTestSuite(t *testing.T) {
	suite.Run(t, new(ControlPlaneTestSuite))
}

func TestControlPlaneHandlerBodyLimit(t *testing.T) {
	svc, err := monitor.NewService(monitor.ServiceConfig{
		Thresholds: alerting.DefaultThresholds(),
		Watchlist:  []string{"SAT-001"},
	}, &stubSource{}, nullLogger())
	require.NoError(t, err)

	router := gin.New()
	router.POST("/config", NewControlPlaneHandler(svc, nullLogger()).PostConfig)

	big := make([]byte, MaxBodyBytes+1)
	for i := range big {
		big[i] = ' '
	}
	w := postJSON(router, "/config", string(big))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
