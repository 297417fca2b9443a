package loadgen

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Anomaly kinds
const (
	KindLatency     = "latency"
	KindDrop        = "drop"
	KindLinkQuality = "link_quality"
)

// Range is an inclusive [Min, Max] interval
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// IntRange is an inclusive [Min, Max] interval of integers
type IntRange struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// Baseline describes a healthy link
type Baseline struct {
	LatencyMs   Range    `yaml:"latency_ms"`
	SentPackets IntRange `yaml:"sent_packets"`
	LinkQuality Range    `yaml:"link_quality"`
}

// Anomaly overrides one field of a satellite's samples for the first
// DurationSeconds of every PeriodSeconds. For KindDrop the range is a
// fraction of the packets sent.
type Anomaly struct {
	Name            string `yaml:"name"`
	SatID           string `yaml:"sat_id"`
	Kind            string `yaml:"kind"`
	PeriodSeconds   int    `yaml:"period_s"`
	DurationSeconds int    `yaml:"duration_s"`
	Range           Range  `yaml:"range"`
}

// Active reports whether the anomaly applies elapsedSeconds into a run
func (a Anomaly) Active(elapsedSeconds int64) bool {
	if a.PeriodSeconds <= 0 {
		return false
	}
	return elapsedSeconds%int64(a.PeriodSeconds) < int64(a.DurationSeconds)
}

// Profile is the full description of generated traffic
type Profile struct {
	Baseline  Baseline  `yaml:"baseline"`
	Anomalies []Anomaly `yaml:"anomalies"`
}

// DefaultProfile returns healthy traffic with latency spikes on SAT-001,
// drop bursts on SAT-002 and link-quality dips on SAT-003.
func DefaultProfile() Profile {
	return Profile{
		Baseline: Baseline{
			LatencyMs:   Range{Min: 20, Max: 80},
			SentPackets: IntRange{Min: 80, Max: 200},
			LinkQuality: Range{Min: 0.85, Max: 0.99},
		},
		Anomalies: []Anomaly{
			{Name: "latency-spike", SatID: "SAT-001", Kind: KindLatency, PeriodSeconds: 30, DurationSeconds: 5, Range: Range{Min: 300, Max: 800}},
			{Name: "drop-burst", SatID: "SAT-002", Kind: KindDrop, PeriodSeconds: 45, DurationSeconds: 5, Range: Range{Min: 0.2, Max: 0.5}},
			{Name: "link-dip", SatID: "SAT-003", Kind: KindLinkQuality, PeriodSeconds: 60, DurationSeconds: 5, Range: Range{Min: 0.2, Max: 0.6}},
		},
	}
}

// LoadProfile reads a YAML profile. Sections missing from the file keep
// their default values; an anomalies list replaces the defaults wholesale.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile is LoadProfile for in-memory YAML
func ParseProfile(data []byte) (Profile, error) {
	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Validate collects every problem in the profile
func (p Profile) Validate() error {
	var errors []string

	b := p.Baseline
	if b.LatencyMs.Min < 0 || b.LatencyMs.Min > b.LatencyMs.Max {
		errors = append(errors, "baseline.latency_ms must satisfy 0 <= min <= max")
	}
	if b.SentPackets.Min < 1 || b.SentPackets.Min > b.SentPackets.Max {
		errors = append(errors, "baseline.sent_packets must satisfy 1 <= min <= max")
	}
	if !unitRange(b.LinkQuality) {
		errors = append(errors, "baseline.link_quality must lie within [0,1]")
	}

	for i, a := range p.Anomalies {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("anomalies[%d]", i)
		}
		if a.SatID == "" {
			errors = append(errors, name+": sat_id is required")
		}
		if a.PeriodSeconds < 1 || a.DurationSeconds < 0 {
			errors = append(errors, name+": period_s must be >= 1 and duration_s >= 0")
		}
		switch a.Kind {
		case KindLatency:
			if a.Range.Min < 0 || a.Range.Min > a.Range.Max {
				errors = append(errors, name+": range must satisfy 0 <= min <= max")
			}
		case KindDrop, KindLinkQuality:
			if !unitRange(a.Range) {
				errors = append(errors, name+": range must lie within [0,1]")
			}
		default:
			errors = append(errors, fmt.Sprintf("%s: unknown kind %q", name, a.Kind))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid profile: %s", strings.Join(errors, "; "))
	}
	return nil
}

func unitRange(r Range) bool {
	return r.Min >= 0 && r.Max <= 1 && r.Min <= r.Max
}
