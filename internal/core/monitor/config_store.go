package monitor

import (
	"strings"
	"sync"

	"github.com/frostdev-ops/satwatch/internal/core/alerting"
	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
)

// ConfigStore holds the live thresholds and watchlist. Each has its own lock
// so a watchlist replace never blocks a threshold read.
type ConfigStore struct {
	thresholdsMu sync.RWMutex
	thresholds   alerting.Thresholds

	watchlistMu sync.RWMutex
	watchlist   []string
}

// NewConfigStore validates the initial values and returns a store holding them
func NewConfigStore(thresholds alerting.Thresholds, watchlist []string) (*ConfigStore, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	ids := NormalizeWatchlist(watchlist)
	if len(ids) == 0 {
		return nil, apperrors.Validationf("sats must be non-empty")
	}

	return &ConfigStore{
		thresholds: thresholds,
		watchlist:  ids,
	}, nil
}

// Thresholds returns a snapshot of the current thresholds
func (c *ConfigStore) Thresholds() alerting.Thresholds {
	c.thresholdsMu.RLock()
	defer c.thresholdsMu.RUnlock()
	return c.thresholds
}

// MergeThresholds applies patch and returns the result. If the merged value
// is invalid nothing changes.
func (c *ConfigStore) MergeThresholds(patch alerting.ThresholdsPatch) (alerting.Thresholds, error) {
	c.thresholdsMu.Lock()
	defer c.thresholdsMu.Unlock()

	next := patch.Apply(c.thresholds)
	if err := next.Validate(); err != nil {
		return c.thresholds, err
	}

	c.thresholds = next
	return next, nil
}

// Watchlist returns a copy of the watched ids in order
func (c *ConfigStore) Watchlist() []string {
	c.watchlistMu.RLock()
	defer c.watchlistMu.RUnlock()

	out := make([]string, len(c.watchlist))
	copy(out, c.watchlist)
	return out
}

// ReplaceWatchlist swaps the whole watchlist. The list is normalized first;
// an empty result is rejected and the previous list kept.
func (c *ConfigStore) ReplaceWatchlist(ids []string) ([]string, error) {
	next := NormalizeWatchlist(ids)
	if len(next) == 0 {
		return nil, apperrors.Validationf("sats must be non-empty")
	}

	c.watchlistMu.Lock()
	c.watchlist = next
	c.watchlistMu.Unlock()

	out := make([]string, len(next))
	copy(out, next)
	return out, nil
}

// NormalizeWatchlist trims ids, drops empty ones and removes duplicates,
// keeping the first occurrence.
func NormalizeWatchlist(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
