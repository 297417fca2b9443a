package aggregator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", DefaultTimeouts(), testLogger())
}

func TestFetchStatsSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metrics", r.URL.Path)
		assert.Equal(t, "SAT 001&x", r.URL.Query().Get("sat_id"))
		assert.Equal(t, "300", r.URL.Query().Get("window_s"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"sat_id":"SAT 001&x","window_s":300,"count":4,"drop_rate":0.1,"latency_p50_ms":20,"latency_p95_ms":90,"avg_link_quality":0.8}`))
	})

	report, err := client.FetchStats(context.Background(), "SAT 001&x", 300)
	require.NoError(t, err)

	assert.True(t, report.OK)
	assert.Equal(t, 4, report.Count)
	assert.Equal(t, 90.0, report.LatencyP95Ms)
	assert.Equal(t, 0.8, report.AvgLinkQuality)
}

func TestFetchStatsNotOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false}`))
	})

	report, err := client.FetchStats(context.Background(), "SAT-001", 600)
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Equal(t, "metrics not ok", report.Error)
}

func TestFetchStatsFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"ok":false,"error":"database is locked"}`))
			},
			kind: ErrBadStatus,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			kind: ErrBadStatus,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ok":tru`))
			},
			kind: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchStats(context.Background(), "SAT-001", 600)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestFetchStatsConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(url, DefaultTimeouts(), testLogger())
	_, err := client.FetchStats(context.Background(), "SAT-001", 600)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestFetchStatsReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, Timeouts{Connect: time.Second, Read: 50 * time.Millisecond, Write: time.Second}, testLogger())

	start := time.Now()
	_, err := client.FetchStats(context.Background(), "SAT-001", 600)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	assert.NoError(t, client.Health(context.Background()))

	healthy.Store(false)
	assert.ErrorIs(t, client.Health(context.Background()), ErrBadStatus)
}
