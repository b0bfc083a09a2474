package infection

import (
	"sort"

	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

// outdoorHazard is the residual hazard of an outdoor contact.
const outdoorHazard = 0.1

// Seasonality interpolates the fraction of seasonal activities taking
// place outdoors over the course of the run.
type Seasonality struct {
	points []scenario.OutdoorPoint
}

// NewSeasonality sorts the anchor points by day. An empty point list
// means everything happens indoors.
func NewSeasonality(points []scenario.OutdoorPoint) *Seasonality {
	sorted := make([]scenario.OutdoorPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Day < sorted[j].Day })
	return &Seasonality{points: sorted}
}

// FractionOn returns the outdoor fraction on the given day, linearly
// interpolated between anchors and clamped beyond them.
func (s *Seasonality) FractionOn(day int) float64 {
	if len(s.points) == 0 {
		return 0
	}
	if day <= s.points[0].Day {
		return s.points[0].Fraction
	}
	last := s.points[len(s.points)-1]
	if day >= last.Day {
		return last.Fraction
	}
	hi := sort.Search(len(s.points), func(i int) bool { return s.points[i].Day >= day })
	lo := hi - 1
	a, b := s.points[lo], s.points[hi]
	frac := float64(day-a.Day) / float64(b.Day-a.Day)
	return a.Fraction + frac*(b.Fraction-a.Fraction)
}

// indoorOutdoorFactor samples whether a contact happens outdoors. Only
// contacts where either activity is seasonal are eligible; the draw is
// per pair.
func indoorOutdoorFactor(r *rng.Rand, outdoorFraction float64, actA, actB *scenario.ActivityParams) float64 {
	if !actA.Seasonal && !actB.Seasonal {
		return 1
	}
	if r.Float64() < outdoorFraction {
		return outdoorHazard
	}
	return 1
}
