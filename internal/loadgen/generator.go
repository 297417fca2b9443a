package loadgen

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/frostdev-ops/satwatch/internal/database/models"
)

// SatIDs returns SAT-001 .. SAT-<n>
func SatIDs(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("SAT-%03d", i))
	}
	return ids
}

// Generator produces random samples following a Profile. It is not safe for
// concurrent use.
type Generator struct {
	profile Profile
	sats    []string
	rng     *rand.Rand
	newID   func() string
}

func NewGenerator(profile Profile, sats []string, seed int64) *Generator {
	return &Generator{
		profile: profile,
		sats:    sats,
		rng:     rand.New(rand.NewSource(seed)),
		newID:   func() string { return uuid.NewString() },
	}
}

// Next returns a sample for a random satellite, elapsed into the run and
// stamped with now.
func (g *Generator) Next(elapsed time.Duration, now time.Time) models.Sample {
	return g.NextFor(g.sats[g.rng.Intn(len(g.sats))], elapsed, now)
}

// NextFor returns a sample for satID
func (g *Generator) NextFor(satID string, elapsed time.Duration, now time.Time) models.Sample {
	b := g.profile.Baseline

	sent := g.intBetween(b.SentPackets.Min, b.SentPackets.Max)
	s := models.Sample{
		EventID:        g.newID(),
		SatID:          satID,
		TimestampMs:    now.UnixMilli(),
		LatencyMs:      g.between(b.LatencyMs),
		SentPackets:    sent,
		DroppedPackets: g.intBetween(0, max(1, sent/200)),
		LinkQuality:    g.between(b.LinkQuality),
	}

	second := int64(elapsed / time.Second)
	for _, a := range g.profile.Anomalies {
		if a.SatID != satID || !a.Active(second) {
			continue
		}
		switch a.Kind {
		case KindLatency:
			s.LatencyMs = g.between(a.Range)
		case KindDrop:
			lo := int64(math.Floor(float64(sent) * a.Range.Min))
			hi := int64(math.Floor(float64(sent) * a.Range.Max))
			s.DroppedPackets = g.intBetween(lo, hi)
		case KindLinkQuality:
			s.LinkQuality = g.between(a.Range)
		}
	}

	if s.DroppedPackets > s.SentPackets {
		s.DroppedPackets = s.SentPackets
	}
	return s
}

func (g *Generator) between(r Range) float64 {
	return r.Min + g.rng.Float64()*(r.Max-r.Min)
}

func (g *Generator) intBetween(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Int63n(hi-lo+1)
}
