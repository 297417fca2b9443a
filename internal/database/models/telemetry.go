package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/frostdev-ops/satwatch/pkg/errors"
)

// Sample is one raw link telemetry event reported by a satellite. Samples are
// immutable once stored; EventID is the idempotency key.
type Sample struct {
	EventID        string  `json:"event_id" db:"event_id"`
	SatID          string  `json:"sat_id" db:"sat_id"`
	TimestampMs    int64   `json:"ts_ms" db:"ts_ms"`
	LatencyMs      float64 `json:"latency_ms" db:"latency_ms"`
	DroppedPackets int64   `json:"dropped_packets" db:"dropped_packets"`
	SentPackets    int64   `json:"sent_packets" db:"sent_packets"`
	LinkQuality    float64 `json:"link_quality" db:"link_quality"`
}

var requiredSampleFields = []string{
	"event_id", "sat_id", "ts_ms", "latency_ms", "dropped_packets", "sent_packets", "link_quality",
}

// ParseSample decodes and validates a telemetry event body. Field types are
// checked on the raw JSON so that, for example, 12.5 is rejected for an
// integer field instead of being truncated.
func ParseSample(body []byte) (*Sample, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, apperrors.Validationf("invalid json: %v", err)
	}
	if raw == nil {
		return nil, apperrors.Validationf("invalid json: expected object")
	}

	for _, key := range requiredSampleFields {
		if _, ok := raw[key]; !ok {
			return nil, apperrors.Validationf("missing field: %s", key)
		}
	}

	s := &Sample{}
	var ok bool

	if s.EventID, ok = raw["event_id"].(string); !ok || s.EventID == "" {
		return nil, apperrors.Validationf("event_id invalid")
	}
	if s.SatID, ok = raw["sat_id"].(string); !ok || s.SatID == "" {
		return nil, apperrors.Validationf("sat_id invalid")
	}
	if s.TimestampMs, ok = integerField(raw["ts_ms"]); !ok {
		return nil, apperrors.Validationf("ts_ms must be int64")
	}
	if s.LatencyMs, ok = numberField(raw["latency_ms"]); !ok {
		return nil, apperrors.Validationf("latency_ms must be number")
	}
	if s.DroppedPackets, ok = integerField(raw["dropped_packets"]); !ok {
		return nil, apperrors.Validationf("dropped_packets must be int")
	}
	if s.SentPackets, ok = integerField(raw["sent_packets"]); !ok {
		return nil, apperrors.Validationf("sent_packets must be int")
	}
	if s.LinkQuality, ok = numberField(raw["link_quality"]); !ok {
		return nil, apperrors.Validationf("link_quality must be number")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the value ranges of an already-typed sample.
func (s *Sample) Validate() error {
	if s.EventID == "" {
		return apperrors.Validationf("event_id invalid")
	}
	if s.SatID == "" {
		return apperrors.Validationf("sat_id invalid")
	}
	if s.SentPackets <= 0 {
		return apperrors.Validationf("sent_packets must be > 0")
	}
	if s.DroppedPackets < 0 || s.DroppedPackets > s.SentPackets {
		return apperrors.Validationf("dropped_packets must be in [0,sent_packets]")
	}
	if s.LinkQuality < 0.0 || s.LinkQuality > 1.0 {
		return apperrors.Validationf("link_quality out of range [0,1]")
	}
	return nil
}

func (s *Sample) String() string {
	return fmt.Sprintf("sample{event_id=%s sat_id=%s ts_ms=%d}", s.EventID, s.SatID, s.TimestampMs)
}

func integerField(v interface{}) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

func numberField(v interface{}) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
