package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/sirupsen/logrus"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 1 << 20

// Timeouts for one aggregator request. Each phase is bounded separately and
// the whole request by their sum.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
}

// DefaultTimeouts are 2s per phase
func DefaultTimeouts() Timeouts {
	return Timeouts{Connect: 2 * time.Second, Read: 2 * time.Second, Write: 2 * time.Second}
}

// Client fetches window stats from the aggregator service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a client for the aggregator at baseURL
func NewClient(baseURL string, timeouts Timeouts, logger *logrus.Logger) *Client {
	dialer := &net.Dialer{Timeout: timeouts.Connect}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: timeouts.Read,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeouts.Connect + timeouts.Read + timeouts.Write,
		},
		logger: logger,
	}
}

// FetchStats requests satID's stats over the given window. Transport
// failures, non-200 responses and undecodable bodies are errors. A 200 with
// "ok":false is returned as a report, not an error.
func (c *Client) FetchStats(ctx context.Context, satID string, windowSeconds int) (aggregate.Report, error) {
	query := url.Values{}
	query.Set("sat_id", satID)
	query.Set("window_s", strconv.Itoa(windowSeconds))

	body, status, err := c.get(ctx, "/metrics?"+query.Encode())
	if err != nil {
		return aggregate.Report{}, newClientError(ErrRequestFailed, 0, satID, err)
	}
	if status != http.StatusOK {
		return aggregate.Report{}, newClientError(ErrBadStatus, status, satID, nil)
	}

	var report aggregate.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return aggregate.Report{}, newClientError(ErrInvalidResponse, status, satID, err)
	}
	if !report.OK && report.Error == "" {
		report.Error = "metrics not ok"
	}

	c.logger.WithFields(logrus.Fields{
		"sat_id":   satID,
		"window_s": windowSeconds,
		"ok":       report.OK,
		"count":    report.Count,
	}).Debug("Fetched window stats")

	return report, nil
}

// Health checks that the aggregator answers /health with 200
func (c *Client) Health(ctx context.Context) error {
	_, status, err := c.get(ctx, "/health")
	if err != nil {
		return newClientError(ErrRequestFailed, 0, "", err)
	}
	if status != http.StatusOK {
		return newClientError(ErrBadStatus, status, "", nil)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
