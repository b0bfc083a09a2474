package infection

import (
	"math"

	"github.com/sgrunder/contagion/internal/policy"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

// courseInfectivity modulates the infector term over the course of the
// disease. It follows a normal density scaled to peak 1, centered just
// before symptom onset, and reads the pre-committed next transition of
// the infector to anticipate the onset day.
func courseInfectivity(p *population.Person, prog ProgressionInfo, day int) float64 {
	switch p.Status() {
	case population.ShowingSymptoms:
		since, _ := p.DaysSince(population.ShowingSymptoms, day)
		return peakDensity(float64(since))
	case population.Contagious:
		since, _ := p.DaysSince(population.Contagious, day)
		switch prog.NextDiseaseStatus(p.ID) {
		case population.ShowingSymptoms:
			return peakDensity(float64(prog.NextTransitionDay(p.ID) - since))
		case population.Recovered:
			// without symptom onset the mid point of the contagious
			// interval anchors the curve
			return peakDensity(float64(since) - float64(prog.NextTransitionDay(p.ID))/2)
		}
	}
	return 0
}

// peakDensity is the N(0.5, 2.6) density normalized to peak 1.
func peakDensity(x float64) float64 {
	const mean, sd = 0.5, 2.6
	d := x - mean
	return math.Exp(-d * d / (2 * sd * sd))
}

func ageIndex(age int) int {
	if age < 0 {
		return 0
	}
	if age >= maxAge {
		return maxAge - 1
	}
	return age
}

// WithAntibodies is the full hazard formula: age-interpolated
// susceptibility and infectivity, disease-course infectivity with
// transition look-ahead, strain-specific infectiousness, masks,
// seasonal outdoor sampling and the saturating antibody immunity term.
type WithAntibodies struct {
	calibration    float64
	susceptibility [maxAge]float64
	infectivity    [maxAge]float64

	strains    map[string]scenario.StrainParams
	ak50Factor float64

	masks  *MaskModel
	season *Seasonality
	prog   ProgressionInfo

	day     int
	outdoor float64
}

// NewWithAntibodies builds the model from the scenario tables.
func NewWithAntibodies(cfg *scenario.Scenario, masks *MaskModel, prog ProgressionInfo) *WithAntibodies {
	return &WithAntibodies{
		calibration:    cfg.Calibration,
		susceptibility: interpolateAges(cfg.AgeSusceptibility),
		infectivity:    interpolateAges(cfg.AgeInfectivity),
		strains:        cfg.Strains,
		ak50Factor:     cfg.Ak50Factor,
		masks:          masks,
		season:         NewSeasonality(cfg.OutdoorFraction),
		prog:           prog,
	}
}

func (m *WithAntibodies) SetDay(day int, r *rng.Rand) {
	m.day = day
	m.outdoor = m.season.FractionOn(day)
	m.masks.SetDay(r)
}

func (m *WithAntibodies) Probability(r *rng.Rand, target, infector *population.Person,
	restrictions policy.Restrictions,
	actTarget, actInfector *scenario.ActivityParams,
	contactIntensity, jointTime float64) float64 {

	restrTarget := restrictions.Get(actTarget.Name)
	restrInfector := restrictions.Get(actInfector.Name)
	ciCorrection := math.Min(restrTarget.CiCorrection, restrInfector.CiCorrection)

	strain := m.strains[infector.Strain()]

	immunity := 1.0
	if titer := target.Antibodies(infector.Strain()); titer > 0 {
		immunity = 1 + math.Pow(titer/(m.ak50Factor*strain.Ak50), strain.Beta)
	}

	hazard := m.calibration *
		m.susceptibility[ageIndex(target.Age)] *
		m.infectivity[ageIndex(infector.Age)] *
		contactIntensity * jointTime * ciCorrection *
		courseInfectivity(infector, m.prog, m.day) *
		strain.Infectiousness *
		m.masks.Shedding(infector, restrInfector) *
		m.masks.Intake(target, restrTarget) *
		indoorOutdoorFactor(r, m.outdoor, actTarget, actInfector) /
		immunity

	return 1 - math.Exp(-hazard)
}

// WithSeasonality is the reduced hazard formula: no age or antibody
// terms, only strain infectiousness, masks and the seasonal outdoor
// sampling on top of the common contact factors.
type WithSeasonality struct {
	calibration float64
	strains     map[string]scenario.StrainParams

	masks  *MaskModel
	season *Seasonality

	outdoor float64
}

// NewWithSeasonality builds the model from the scenario tables.
func NewWithSeasonality(cfg *scenario.Scenario, masks *MaskModel) *WithSeasonality {
	return &WithSeasonality{
		calibration: cfg.Calibration,
		strains:     cfg.Strains,
		masks:       masks,
		season:      NewSeasonality(cfg.OutdoorFraction),
	}
}

func (m *WithSeasonality) SetDay(day int, r *rng.Rand) {
	m.outdoor = m.season.FractionOn(day)
	m.masks.SetDay(r)
}

func (m *WithSeasonality) Probability(r *rng.Rand, target, infector *population.Person,
	restrictions policy.Restrictions,
	actTarget, actInfector *scenario.ActivityParams,
	contactIntensity, jointTime float64) float64 {

	restrTarget := restrictions.Get(actTarget.Name)
	restrInfector := restrictions.Get(actInfector.Name)
	ciCorrection := math.Min(restrTarget.CiCorrection, restrInfector.CiCorrection)

	strain := m.strains[infector.Strain()]

	hazard := m.calibration *
		contactIntensity * jointTime * ciCorrection *
		strain.Infectiousness *
		m.masks.Shedding(infector, restrInfector) *
		m.masks.Intake(target, restrTarget) *
		indoorOutdoorFactor(r, m.outdoor, actTarget, actInfector)

	return 1 - math.Exp(-hazard)
}
