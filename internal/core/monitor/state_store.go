package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
	"github.com/frostdev-ops/satwatch/internal/core/alerting"
)

// NoDataMessage is reported for satellites that have never been polled
// successfully
const NoDataMessage = "no data yet"

// EntityState is the latest poll result for one satellite
type EntityState struct {
	Metrics   aggregate.Report `json:"metrics"`
	Alerts    []alerting.Alert `json:"alerts"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

// EntityEntry pairs a satellite id with its state
type EntityEntry struct {
	SatID string `json:"sat_id"`
	EntityState
}

func noDataState() EntityState {
	return EntityState{
		Metrics: aggregate.FailedReport(NoDataMessage),
		Alerts:  []alerting.Alert{},
	}
}

// StateStore keeps the most recent EntityState per satellite. Entries are
// created on first successful poll and never removed.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string]EntityState
}

// NewStateStore creates an empty store
func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]EntityState)}
}

// Get returns a copy of satID's state. When there is none the second return
// is false and the state is the "no data yet" placeholder.
func (s *StateStore) Get(satID string) (EntityState, bool) {
	s.mu.RLock()
	state, ok := s.entries[satID]
	s.mu.RUnlock()

	if !ok {
		return noDataState(), false
	}
	return cloneState(state), true
}

// Set replaces satID's state and returns a copy of what was stored
func (s *StateStore) Set(satID string, report aggregate.Report, alerts []alerting.Alert, at time.Time) EntityState {
	state := EntityState{
		Metrics:   report,
		Alerts:    alerting.CloneAlerts(alerts),
		UpdatedAt: &at,
	}

	s.mu.Lock()
	s.entries[satID] = state
	s.mu.Unlock()

	return cloneState(state)
}

// Snapshot returns copies of every entry ordered by satellite id
func (s *StateStore) Snapshot() []EntityEntry {
	s.mu.RLock()
	out := make([]EntityEntry, 0, len(s.entries))
	for id, state := range s.entries {
		out = append(out, EntityEntry{SatID: id, EntityState: cloneState(state)})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SatID < out[j].SatID })
	return out
}

// Len returns the number of satellites with state
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneState(state EntityState) EntityState {
	out := state
	out.Alerts = alerting.CloneAlerts(state.Alerts)
	if state.UpdatedAt != nil {
		at := *state.UpdatedAt
		out.UpdatedAt = &at
	}
	return out
}
