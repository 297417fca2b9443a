package api

import (
	"compress/gzip"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/satwatch/internal/config"
)

var payload = strings.Repeat(`{"sat_id":"SAT-001","ok":true}`, 200)

func payloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, payload)
	})
}

func TestNewHTTPServerCompresses(t *testing.T) {
	srv := NewHTTPServer(config.ServerConfig{Host: "127.0.0.1", Port: 8083, Compression: true}, payloadHandler())
	assert.Equal(t, "127.0.0.1:8083", srv.Addr)

	req := httptest.NewRequest(http.MethodGet, "/fleet", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestNewHTTPServerSkipsWebSocketUpgrades(t *testing.T) {
	srv := NewHTTPServer(config.ServerConfig{Host: "127.0.0.1", Port: 8083, Compression: true}, payloadHandler())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())
}

func TestNewHTTPServerWithoutCompression(t *testing.T) {
	srv := NewHTTPServer(config.ServerConfig{Host: "127.0.0.1", Port: 8083}, payloadHandler())

	req := httptest.NewRequest(http.MethodGet, "/fleet", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServeShutsDownOnCancel(t *testing.T) {
	log, _ := test.NewNullLogger()
	srv := &http.Server{Addr: freeAddr(t), Handler: payloadHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, time.Second, log) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeReportsListenError(t *testing.T) {
	log, _ := test.NewNullLogger()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := &http.Server{Addr: l.Addr().String(), Handler: payloadHandler()}
	err = Serve(context.Background(), srv, time.Second, log)
	assert.Error(t, err)
}
