package alerting

import (
	"github.com/frostdev-ops/satwatch/internal/core/aggregate"
)

// Severity of an alert
type Severity string

const (
	SeverityMedium Severity = "MED"
	SeverityHigh   Severity = "HIGH"
)

// Kind identifies which check raised an alert
type Kind string

const (
	KindAggregatorError Kind = "AGGREGATOR_ERROR"
	KindLatencyP95      Kind = "LATENCY_P95"
	KindDropRate        Kind = "DROP_RATE"
	KindLinkQuality     Kind = "LINK_QUALITY"
)

// Kinds lists every alert kind in evaluation order
var Kinds = []Kind{KindAggregatorError, KindLatencyP95, KindDropRate, KindLinkQuality}

// Alert is one threshold violation. Value and Threshold are set for metric
// checks; Message is set for AGGREGATOR_ERROR.
type Alert struct {
	Severity  Severity `json:"severity"`
	Kind      Kind     `json:"type"`
	Value     *float64 `json:"value,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Evaluate checks a report against thresholds. A failed report yields a
// single AGGREGATOR_ERROR; an empty window yields no alerts; otherwise each
// check runs independently with strict comparisons. The result is never nil.
func Evaluate(report aggregate.Report, t Thresholds) []Alert {
	if !report.OK {
		msg := report.Error
		if msg == "" {
			msg = "metrics not ok"
		}
		return []Alert{{Severity: SeverityHigh, Kind: KindAggregatorError, Message: msg}}
	}

	alerts := []Alert{}
	if report.Count == 0 {
		return alerts
	}

	if report.LatencyP95Ms > t.LatencyP95Ms {
		alerts = append(alerts, metricAlert(SeverityMedium, KindLatencyP95, report.LatencyP95Ms, t.LatencyP95Ms))
	}
	if report.DropRate > t.DropRate {
		alerts = append(alerts, metricAlert(SeverityHigh, KindDropRate, report.DropRate, t.DropRate))
	}
	if report.AvgLinkQuality < t.MinLinkQuality {
		alerts = append(alerts, metricAlert(SeverityMedium, KindLinkQuality, report.AvgLinkQuality, t.MinLinkQuality))
	}

	return alerts
}

func metricAlert(severity Severity, kind Kind, value, threshold float64) Alert {
	return Alert{
		Severity:  severity,
		Kind:      kind,
		Value:     &value,
		Threshold: &threshold,
	}
}

// CloneAlerts returns a deep copy of alerts, never nil
func CloneAlerts(alerts []Alert) []Alert {
	out := make([]Alert, len(alerts))
	for i, a := range alerts {
		out[i] = a
		if a.Value != nil {
			v := *a.Value
			out[i].Value = &v
		}
		if a.Threshold != nil {
			v := *a.Threshold
			out[i].Threshold = &v
		}
	}
	return out
}
