package aggregate

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/frostdev-ops/satwatch/internal/database/models"
)

// WindowStats summarizes one satellite's samples over a trailing window
type WindowStats struct {
	SatID          string  `json:"sat_id"`
	WindowSeconds  int     `json:"window_s"`
	Count          int     `json:"count"`
	DropRate       float64 `json:"drop_rate"`
	LatencyP50Ms   float64 `json:"latency_p50_ms"`
	LatencyP95Ms   float64 `json:"latency_p95_ms"`
	AvgLinkQuality float64 `json:"avg_link_quality"`
}

// Report is the aggregator's answer for one query. OK is false when the
// aggregator could not produce stats; Error then says why.
type Report struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	WindowStats
}

// FailedReport builds a report carrying only an error message
func FailedReport(msg string) Report {
	return Report{OK: false, Error: msg}
}

// MarshalJSON drops the stats fields from failed reports so they encode as
// {"ok":false,"error":...}
func (r Report) MarshalJSON() ([]byte, error) {
	if !r.OK {
		return json.Marshal(struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}{OK: false, Error: r.Error})
	}
	type plain Report
	return json.Marshal(plain(r))
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. values is not modified. An empty
// input yields 0.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := (p / 100) * float64(n-1)
	if idx <= 0 {
		return sorted[0]
	}
	if idx >= float64(n-1) {
		return sorted[n-1]
	}

	i := int(math.Floor(idx))
	frac := idx - float64(i)
	return sorted[i]*(1-frac) + sorted[i+1]*frac
}

// Summarize computes WindowStats over samples. It does no filtering: callers
// pass only the samples inside the window.
func Summarize(satID string, windowSeconds int, samples []models.Sample) WindowStats {
	stats := WindowStats{
		SatID:         satID,
		WindowSeconds: windowSeconds,
		Count:         len(samples),
	}
	if len(samples) == 0 {
		return stats
	}

	latencies := make([]float64, 0, len(samples))
	var dropped, sent int64
	var linkQuality float64

	for _, s := range samples {
		latencies = append(latencies, s.LatencyMs)
		dropped += s.DroppedPackets
		sent += s.SentPackets
		linkQuality += s.LinkQuality
	}

	if sent > 0 {
		stats.DropRate = float64(dropped) / float64(sent)
	}
	stats.AvgLinkQuality = linkQuality / float64(len(samples))
	stats.LatencyP50Ms = Percentile(latencies, 50)
	stats.LatencyP95Ms = Percentile(latencies, 95)

	return stats
}
