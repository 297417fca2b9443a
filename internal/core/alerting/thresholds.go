package alerting

import (
	"encoding/json"
	"math"

	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
)

// Thresholds are the operator-tunable alert limits. WindowSeconds selects
// the aggregation window the limits are checked against.
type Thresholds struct {
	LatencyP95Ms   float64 `json:"latency_p95_ms"`
	DropRate       float64 `json:"drop_rate"`
	MinLinkQuality float64 `json:"min_link_quality"`
	WindowSeconds  int     `json:"window_s"`
}

// DefaultThresholds returns the limits used when nothing is configured
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyP95Ms:   200,
		DropRate:       0.05,
		MinLinkQuality: 0.7,
		WindowSeconds:  600,
	}
}

// ThresholdsPatch is a partial update; nil fields keep their current value
type ThresholdsPatch struct {
	LatencyP95Ms   *float64 `json:"latency_p95_ms,omitempty"`
	DropRate       *float64 `json:"drop_rate,omitempty"`
	MinLinkQuality *float64 `json:"min_link_quality,omitempty"`
	WindowSeconds  *int     `json:"window_s,omitempty"`
}

// ParseThresholdsPatch decodes a JSON object of threshold fields. Absent
// fields stay unset; a field that is present must be a number, and window_s
// a whole one. Explicit nulls are rejected.
func ParseThresholdsPatch(body []byte) (ThresholdsPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ThresholdsPatch{}, invalidJSON(err.Error())
	}

	var (
		patch ThresholdsPatch
		err   error
	)
	if patch.LatencyP95Ms, err = numberField(fields, "latency_p95_ms"); err != nil {
		return ThresholdsPatch{}, err
	}
	if patch.DropRate, err = numberField(fields, "drop_rate"); err != nil {
		return ThresholdsPatch{}, err
	}
	if patch.MinLinkQuality, err = numberField(fields, "min_link_quality"); err != nil {
		return ThresholdsPatch{}, err
	}

	window, err := numberField(fields, "window_s")
	if err != nil {
		return ThresholdsPatch{}, err
	}
	if window != nil {
		if *window != math.Trunc(*window) || math.Abs(*window) > math.MaxInt32 {
			return ThresholdsPatch{}, invalidJSON("window_s must be an integer")
		}
		w := int(*window)
		patch.WindowSeconds = &w
	}

	return patch, nil
}

func numberField(fields map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, invalidJSON(key + " must be a number")
	}
	return v, nil
}

func invalidJSON(details string) error {
	return apperrors.WithDetails(apperrors.BadRequestf("invalid json"), details)
}

// Apply returns t with the patch's set fields replaced
func (p ThresholdsPatch) Apply(t Thresholds) Thresholds {
	if p.LatencyP95Ms != nil {
		t.LatencyP95Ms = *p.LatencyP95Ms
	}
	if p.DropRate != nil {
		t.DropRate = *p.DropRate
	}
	if p.MinLinkQuality != nil {
		t.MinLinkQuality = *p.MinLinkQuality
	}
	if p.WindowSeconds != nil {
		t.WindowSeconds = *p.WindowSeconds
	}
	return t
}

// Validate reports the first out-of-range field as a validation error
func (t Thresholds) Validate() error {
	if t.WindowSeconds < 1 {
		return apperrors.Validationf("window_s must be >= 1")
	}
	if !finite(t.LatencyP95Ms) || t.LatencyP95Ms < 0 {
		return apperrors.Validationf("latency_p95_ms must be a finite number >= 0")
	}
	if !finite(t.DropRate) || t.DropRate < 0 || t.DropRate > 1 {
		return apperrors.Validationf("drop_rate must be in [0,1]")
	}
	if !finite(t.MinLinkQuality) || t.MinLinkQuality < 0 || t.MinLinkQuality > 1 {
		return apperrors.Validationf("min_link_quality must be in [0,1]")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
