package progression

import (
	"fmt"
	"math"

	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
)

// StateDecider chooses the next disease status a person will attain
// once the dwell time in the current status has elapsed.
type StateDecider interface {
	DecideNextState(r *rng.Rand, p *population.Person, day int) (population.DiseaseStatus, error)
}

// DefaultDecider uses fixed branch probabilities independent of age.
type DefaultDecider struct{}

func (DefaultDecider) DecideNextState(r *rng.Rand, p *population.Person, day int) (population.DiseaseStatus, error) {
	return decideNextState(r, p, day, func(*population.Person) float64 { return 0.05625 },
		func(*population.Person) float64 { return 0.25 })
}

// AgeDependentDecider stratifies the hospitalization and intensive-care
// probabilities by age.
type AgeDependentDecider struct {
	// HospitalFactor scales the probability of becoming seriously sick.
	HospitalFactor float64
}

func (d AgeDependentDecider) DecideNextState(r *rng.Rand, p *population.Person, day int) (population.DiseaseStatus, error) {
	factor := d.HospitalFactor
	if factor == 0 {
		factor = 1
	}
	return decideNextState(r, p, day,
		func(p *population.Person) float64 { return seriouslySickByAge(p.Age) * factor },
		func(p *population.Person) float64 { return criticalByAge(p.Age) })
}

func seriouslySickByAge(age int) float64 {
	switch {
	case age < 5:
		return 0.04
	case age < 15:
		return 0.011
	case age < 35:
		return 0.024
	case age < 60:
		return 0.056
	case age < 80:
		return 0.23
	default:
		return 0.36
	}
}

func criticalByAge(age int) float64 {
	switch {
	case age < 5:
		return 0.07
	case age < 15:
		return 0
	case age < 35:
		return 0.15
	case age < 60:
		return 0.30
	case age < 80:
		return 0.41
	default:
		return 0.27
	}
}

func decideNextState(r *rng.Rand, p *population.Person, day int,
	probSeriouslySick, probCritical func(*population.Person) float64) (population.DiseaseStatus, error) {

	switch p.Status() {
	case population.InfectedButNotContagious:
		return population.Contagious, nil

	case population.Contagious:
		if r.Float64() < 0.8 {
			return population.ShowingSymptoms, nil
		}
		return population.Recovered, nil

	case population.ShowingSymptoms:
		if r.Float64() < probSeriouslySick(p)*reinfectionSeverityFactor(p, day) {
			return population.SeriouslySick, nil
		}
		return population.Recovered, nil

	case population.SeriouslySick:
		if !p.HadStatus(population.Critical) && r.Float64() < probCritical(p) {
			return population.Critical, nil
		}
		return population.Recovered, nil

	case population.Critical:
		return population.SeriouslySickAfterCritical, nil

	case population.SeriouslySickAfterCritical:
		return population.Recovered, nil

	case population.Recovered:
		return population.Susceptible, nil

	default:
		return 0, fmt.Errorf("no state transition defined from %s", p.Status())
	}
}

// reinfectionSeverityFactor reduces the severe-progression odds of a
// re-infected person. Protection fades by about 20% per year since the
// last recovery.
func reinfectionSeverityFactor(p *population.Person, day int) float64 {
	if p.NumInfections() <= 1 {
		return 1
	}
	since, ok := p.DaysSince(population.Recovered, day)
	if !ok {
		return 1
	}
	return math.Min(0.2*(float64(since)/365), 1)
}
