package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/frostdev-ops/satwatch/internal/core/alerting"
)

// Counters tracks poll loop totals since process start
type Counters struct {
	cycles   atomic.Int64
	failures atomic.Int64

	mu     sync.Mutex
	alerts map[alerting.Kind]int64
}

// NewCounters creates zeroed counters
func NewCounters() *Counters {
	return &Counters{alerts: make(map[alerting.Kind]int64)}
}

func (c *Counters) IncCycles()      { c.cycles.Add(1) }
func (c *Counters) IncFailures()    { c.failures.Add(1) }
func (c *Counters) Cycles() int64   { return c.cycles.Load() }
func (c *Counters) Failures() int64 { return c.failures.Load() }

// AddAlerts counts one per alert, keyed by kind
func (c *Counters) AddAlerts(alerts []alerting.Alert) {
	if len(alerts) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range alerts {
		c.alerts[a.Kind]++
	}
}

// AlertCounts returns a copy of the per-kind totals. Every known kind is
// present, zero or not.
func (c *Counters) AlertCounts() map[alerting.Kind]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[alerting.Kind]int64, len(alerting.Kinds))
	for _, k := range alerting.Kinds {
		out[k] = c.alerts[k]
	}
	for k, v := range c.alerts {
		out[k] = v
	}
	return out
}
