// Package infection converts a sampled contact into an infection
// probability. Two hazard formulas are available as swappable models;
// both share the exponential form P = 1 - exp(-calibration * factors).
package infection

import (
	"sort"

	"github.com/sgrunder/contagion/internal/policy"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

// maxAge bounds the interpolated age tables.
const maxAge = 128

// ProgressionInfo exposes the pre-committed next transition of a
// person, which the disease-course infectivity curve introspects.
type ProgressionInfo interface {
	NextDiseaseStatus(id population.ID) population.DiseaseStatus
	NextTransitionDay(id population.ID) int
}

// Model computes the probability that a single contact infects the
// target. Probability is called from parallel container tasks and must
// only read shared state; per-day mutable state is settled in SetDay.
type Model interface {
	// SetDay fixes day-scoped inputs, e.g. the outdoor fraction and the
	// mask compliance draws.
	SetDay(day int, r *rng.Rand)

	// Probability returns the infection probability in [0, 1] for one
	// contact. actTarget and actInfector are the performed activities,
	// contactIntensity the crowding-normalized minimum intensity and
	// jointTime the shared seconds in the container.
	Probability(r *rng.Rand, target, infector *population.Person,
		restrictions policy.Restrictions,
		actTarget, actInfector *scenario.ActivityParams,
		contactIntensity, jointTime float64) float64
}

// PersonsCanInfectEachOther reports whether a contact between the two
// persons is epidemiologically relevant: exactly one of them must be
// susceptible and the other one able to transmit.
func PersonsCanInfectEachOther(a, b *population.Person) bool {
	if a.Status() == b.Status() {
		return false
	}
	return (a.Status() == population.Susceptible && canTransmit(b)) ||
		(b.Status() == population.Susceptible && canTransmit(a))
}

func canTransmit(p *population.Person) bool {
	return p.Status() == population.Contagious || p.Status() == population.ShowingSymptoms
}

// interpolateAges expands a sparse age table into a dense lookup,
// interpolating linearly between anchors and clamping beyond them.
func interpolateAges(table map[int]float64) [maxAge]float64 {
	var out [maxAge]float64
	if len(table) == 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	ages := make([]int, 0, len(table))
	for age := range table {
		ages = append(ages, age)
	}
	sort.Ints(ages)
	for i := range out {
		switch {
		case i <= ages[0]:
			out[i] = table[ages[0]]
		case i >= ages[len(ages)-1]:
			out[i] = table[ages[len(ages)-1]]
		default:
			hi := sort.SearchInts(ages, i)
			if ages[hi] == i {
				out[i] = table[i]
				continue
			}
			lo := hi - 1
			frac := float64(i-ages[lo]) / float64(ages[hi]-ages[lo])
			out[i] = table[ages[lo]] + frac*(table[ages[hi]]-table[ages[lo]])
		}
	}
	return out
}
