package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    string        `json:"status"` // "healthy", "unhealthy"
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport represents the overall readiness of a service
type HealthReport struct {
	Status     string                  `json:"status"`
	Message    string                  `json:"message"`
	Timestamp  time.Time               `json:"timestamp"`
	Duration   time.Duration           `json:"duration"`
	Components map[string]HealthStatus `json:"components"`
}

// HealthCheckFunc returns nil when the dependency is usable
type HealthCheckFunc func(ctx context.Context) error

type registeredCheck struct {
	name    string
	failMsg string
	check   HealthCheckFunc
}

// HealthChecker runs the readiness checks registered for a service
type HealthChecker struct {
	mu      sync.RWMutex
	checks  []registeredCheck
	timeout time.Duration
}

// NewHealthChecker creates a checker. Each check gets at most timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthChecker{timeout: timeout}
}

// Register adds a check. failMsg is reported when it fails.
func (h *HealthChecker) Register(name, failMsg string, check HealthCheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, registeredCheck{name: name, failMsg: failMsg, check: check})
}

// Check runs every registered check in registration order. The report
// message is the failure message of the first failing check.
func (h *HealthChecker) Check(ctx context.Context) HealthReport {
	start := time.Now()

	h.mu.RLock()
	checks := make([]registeredCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	report := HealthReport{
		Status:     "healthy",
		Message:    fmt.Sprintf("All %d components healthy", len(checks)),
		Components: make(map[string]HealthStatus, len(checks)),
	}

	for _, c := range checks {
		status := h.run(ctx, c)
		report.Components[c.name] = status
		if !status.IsHealthy() && report.Status == "healthy" {
			report.Status = "unhealthy"
			report.Message = c.failMsg
		}
	}

	report.Timestamp = time.Now()
	report.Duration = time.Since(start)
	return report
}

func (h *HealthChecker) run(ctx context.Context, c registeredCheck) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := c.check(ctx)

	status := NewHealthStatus("healthy", "")
	if err != nil {
		status = NewHealthStatus("unhealthy", err.Error())
	}
	status.Duration = time.Since(start)
	return status
}

// NewHealthStatus creates a new health status
func NewHealthStatus(status, message string) HealthStatus {
	return HealthStatus{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// IsHealthy returns true if the status is healthy
func (h HealthStatus) IsHealthy() bool {
	return h.Status == "healthy"
}

// IsHealthy returns true if every component is healthy
func (r HealthReport) IsHealthy() bool {
	return r.Status == "healthy"
}
