// Package scenario defines the yaml configuration surface of a
// simulation run: calibration, activity parameters, age tables, the
// transition table, tracing, antibody tables and seeding schedules.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ActivityParams configures one activity type.
type ActivityParams struct {
	// Name is the activity type, set from the map key on load.
	Name string `yaml:"-"`

	// ContactIntensity is the hazard proxy for proximity/ventilation.
	ContactIntensity float64 `yaml:"contactIntensity"`

	// Spaces is the number of distinct spaces per facility of this
	// activity; crowding normalizes contact intensity by it.
	Spaces float64 `yaml:"spaces"`

	// Seasonal marks activities that may happen outdoors depending on
	// the time of year (e.g. leisure).
	Seasonal bool `yaml:"seasonal"`
}

// StrainParams configures one virus strain.
type StrainParams struct {
	// Infectiousness is the hazard multiplier relative to the base strain.
	Infectiousness float64 `yaml:"infectiousness"`

	// Ak50 scales the antibody level at which protection reaches 50%.
	Ak50 float64 `yaml:"ak50"`

	// Beta is the exponent of the saturating immunity curve.
	Beta float64 `yaml:"beta"`
}

// MaskParams holds the hazard multipliers of one face covering type.
type MaskParams struct {
	Shedding float64 `yaml:"shedding"`
	Intake   float64 `yaml:"intake"`
}

// TransitionEdge configures one dwell-time sampler of the disease state
// graph.
type TransitionEdge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// Type is "fixed" or "logNormal".
	Type string `yaml:"type"`

	// Day is the fixed dwell time for fixed transitions.
	Day int `yaml:"day"`

	// Median/Mean and Std parameterize log-normal transitions; exactly
	// one of median or mean must be set.
	Median float64 `yaml:"median"`
	Mean   float64 `yaml:"mean"`
	Std    float64 `yaml:"std"`
}

// TracingConfig configures contact tracing and quarantine.
type TracingConfig struct {
	// EnabledAfterDay is the first day contacts are tracked and traced.
	// A very large value disables tracing entirely.
	EnabledAfterDay int `yaml:"enabledAfterDay"`

	// Capacity is the number of tracing operations per day, scaled by
	// sample size. Negative means unlimited.
	Capacity int `yaml:"capacity"`

	// CapacityPerContact counts capacity per traced contact instead of
	// per index person.
	CapacityPerContact bool `yaml:"capacityPerContact"`

	// Probability of successfully tracing a non-household contact.
	Probability float64 `yaml:"probability"`

	// Delay in days between symptom onset and tracing.
	Delay int `yaml:"delay"`

	// Window is how many days back contacts are considered.
	Window int `yaml:"window"`

	// MinDuration is the minimum joint time in seconds for a contact to
	// be registered in the ledger.
	MinDuration float64 `yaml:"minDuration"`

	// QuarantineDuration is the days a healthy traced person stays
	// quarantined.
	QuarantineDuration int `yaml:"quarantineDuration"`

	// QuarantineHousehold always traces household members successfully.
	QuarantineHousehold bool `yaml:"quarantineHousehold"`

	// TraceSusceptible also tracks susceptible-susceptible pairs.
	TraceSusceptible bool `yaml:"traceSusceptible"`
}

// AntibodyConfig configures the immunity model.
type AntibodyConfig struct {
	HalfLifeDays float64 `yaml:"halfLifeDays"`
	MaxTiter     float64 `yaml:"maxTiter"`

	// ImmuneResponseSigma is the log-normal sigma of the per-person
	// antibody gain multiplier; 0 disables the extra draw.
	ImmuneResponseSigma float64 `yaml:"immuneResponseSigma"`

	// Initial maps immunization event (vaccination type or infecting
	// strain) to the priming titer per target strain.
	Initial map[string]map[string]float64 `yaml:"initial"`

	// Refresh maps immunization event to the boost factor per target
	// strain.
	Refresh map[string]map[string]float64 `yaml:"refresh"`
}

// OutdoorPoint anchors the interpolated outdoor fraction at a day.
type OutdoorPoint struct {
	Day      int     `yaml:"day"`
	Fraction float64 `yaml:"fraction"`
}

// SeedingEntry plants infections into the susceptible population.
type SeedingEntry struct {
	Day    int    `yaml:"day"`
	Strain string `yaml:"strain"`
	Count  int    `yaml:"count"`
}

// VaccinationEntry administers doses on a day.
type VaccinationEntry struct {
	Day   int    `yaml:"day"`
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

// RestrictionConfig is the static per-activity policy applied every day
// of the run. The engine consumes restrictions through the policy
// provider interface, so a dynamic policy collaborator can replace this.
type RestrictionConfig struct {
	RemainingFraction      *float64 `yaml:"remainingFraction"`
	CiCorrection           *float64 `yaml:"ciCorrection"`
	MaxGroupSize           *int     `yaml:"maxGroupSize"`
	ReducedGroupSize       *int     `yaml:"reducedGroupSize"`
	ClosingFrom            *float64 `yaml:"closingFrom"`
	ClosingTo              *float64 `yaml:"closingTo"`
	ClosingHoursCompliance *float64 `yaml:"closingHoursCompliance"`
	RequireMask            string   `yaml:"requireMask"`
	ClosedContainers       []string `yaml:"closedContainers"`
}

// PopulationConfig sizes the synthetic population built by the trace
// source when no external trace is supplied.
type PopulationConfig struct {
	Size              int     `yaml:"size"`
	MeanHouseholdSize int     `yaml:"meanHouseholdSize"`
	WorkFraction      float64 `yaml:"workFraction"`
	EduFraction       float64 `yaml:"eduFraction"`
	PtFraction        float64 `yaml:"ptFraction"`
}

// Scenario is the full configuration of one run.
type Scenario struct {
	StartDate string `yaml:"startDate"`
	Days      int    `yaml:"days"`
	Seed      uint64 `yaml:"seed"`
	Workers   int    `yaml:"workers"`

	// SampleSize is the population sub-sampling ratio in (0, 1].
	SampleSize float64 `yaml:"sampleSize"`

	// Calibration is the global hazard calibration constant.
	Calibration float64 `yaml:"calibration"`

	// TargetContactRate bounds the expected interactions per person per
	// container visit.
	TargetContactRate float64 `yaml:"targetContactRate"`

	// DaysInfectious bounds the infectious period: a person more days
	// than this past becoming contagious no longer infects.
	DaysInfectious int `yaml:"daysInfectious"`

	// ContactModel selects the sampling strategy: symmetric, pairwise
	// or sqrt.
	ContactModel string `yaml:"contactModel"`

	// InfectionModel selects the hazard formula: antibodies or
	// seasonality.
	InfectionModel string `yaml:"infectionModel"`

	// ProgressionDecider selects branch probabilities: default or
	// ageDependent.
	ProgressionDecider string `yaml:"progressionDecider"`

	// HospitalFactor scales the age-dependent hospitalization odds.
	HospitalFactor float64 `yaml:"hospitalFactor"`

	MaskCompliance float64               `yaml:"maskCompliance"`
	Masks          map[string]MaskParams `yaml:"masks"`

	Activities map[string]*ActivityParams `yaml:"activities"`

	AgeSusceptibility map[int]float64 `yaml:"ageSusceptibility"`
	AgeInfectivity    map[int]float64 `yaml:"ageInfectivity"`

	Strains    map[string]StrainParams `yaml:"strains"`
	Ak50Factor float64                 `yaml:"ak50Factor"`

	Antibodies AntibodyConfig `yaml:"antibodies"`

	Transitions []TransitionEdge `yaml:"transitions"`

	Tracing TracingConfig `yaml:"tracing"`

	OutdoorFraction []OutdoorPoint `yaml:"outdoorFraction"`

	InitialInfections []SeedingEntry     `yaml:"initialInfections"`
	Vaccinations      []VaccinationEntry `yaml:"vaccinations"`

	Restrictions map[string]RestrictionConfig `yaml:"restrictions"`

	Population PopulationConfig `yaml:"population"`

	DBPath   string `yaml:"dbPath"`
	LogLevel string `yaml:"logLevel"`
}

// Default returns a runnable scenario with the reference parameters.
func Default() *Scenario {
	return &Scenario{
		StartDate:          "2020-02-17",
		Days:               90,
		Seed:               4711,
		Workers:            1,
		SampleSize:         1,
		Calibration:        1.7e-5,
		TargetContactRate:  3,
		DaysInfectious:     4,
		ContactModel:       "symmetric",
		InfectionModel:     "antibodies",
		ProgressionDecider: "ageDependent",
		HospitalFactor:     1,
		MaskCompliance:     0,
		Masks: map[string]MaskParams{
			"cloth":    {Shedding: 0.6, Intake: 0.5},
			"surgical": {Shedding: 0.3, Intake: 0.3},
			"n95":      {Shedding: 0.15, Intake: 0.025},
		},
		Activities: map[string]*ActivityParams{
			"home":            {ContactIntensity: 1, Spaces: 1},
			"quarantine_home": {ContactIntensity: 0.3, Spaces: 1},
			"work":            {ContactIntensity: 1.47, Spaces: 20},
			"edu":             {ContactIntensity: 11, Spaces: 20},
			"leisure":         {ContactIntensity: 9.24, Spaces: 20, Seasonal: true},
			"shop":            {ContactIntensity: 0.88, Spaces: 20},
			"pt":              {ContactIntensity: 10, Spaces: 1},
		},
		AgeSusceptibility: map[int]float64{0: 0.45, 20: 1, 120: 1},
		AgeInfectivity:    map[int]float64{0: 0.85, 20: 1, 120: 1},
		Strains: map[string]StrainParams{
			"base": {Infectiousness: 1, Ak50: 0.2, Beta: 1.2},
		},
		Ak50Factor: 1,
		Antibodies: AntibodyConfig{
			HalfLifeDays:        80,
			MaxTiter:            150,
			ImmuneResponseSigma: 0,
			Initial: map[string]map[string]float64{
				"base": {"base": 1},
				"mRNA": {"base": 2},
			},
			Refresh: map[string]map[string]float64{
				"base": {"base": 10},
				"mRNA": {"base": 20},
			},
		},
		Tracing: TracingConfig{
			EnabledAfterDay:     1,
			Capacity:            -1,
			Probability:         0.6,
			Delay:               2,
			Window:              2,
			MinDuration:         900,
			QuarantineDuration:  14,
			QuarantineHousehold: true,
		},
		OutdoorFraction: []OutdoorPoint{
			{Day: 1, Fraction: 0.1},
			{Day: 120, Fraction: 0.8},
			{Day: 240, Fraction: 0.1},
		},
		InitialInfections: []SeedingEntry{
			{Day: 1, Strain: "base", Count: 4},
		},
		Population: PopulationConfig{
			Size:              1000,
			MeanHouseholdSize: 3,
			WorkFraction:      0.5,
			EduFraction:       0.2,
			PtFraction:        0.4,
		},
		DBPath:   "contagion.db",
		LogLevel: "info",
	}
}

// Load reads a scenario file, layering it over the defaults and the
// CONTAGION_CONFIG_PATH environment variable.
func Load(path string) (*Scenario, error) {
	s := Default()

	if path == "" {
		path = os.Getenv("CONTAGION_CONFIG_PATH")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario file: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse scenario file: %w", err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start returns the parsed start date.
func (s *Scenario) Start() time.Time {
	t, _ := time.Parse("2006-01-02", s.StartDate)
	return t
}

// Validate checks everything that is knowable statically, so that
// missing table entries surface at construction time rather than at
// simulation time.
func (s *Scenario) Validate() error {
	if _, err := time.Parse("2006-01-02", s.StartDate); err != nil {
		return fmt.Errorf("invalid startDate %q: %w", s.StartDate, err)
	}
	if s.Days <= 0 {
		return fmt.Errorf("days must be > 0 but is %d", s.Days)
	}
	if s.SampleSize <= 0 || s.SampleSize > 1 {
		return fmt.Errorf("sampleSize must be in (0,1] but is %f", s.SampleSize)
	}
	if s.Calibration < 0 {
		return fmt.Errorf("calibration must be >= 0 but is %f", s.Calibration)
	}
	if s.DaysInfectious <= 0 {
		return fmt.Errorf("daysInfectious must be > 0 but is %d", s.DaysInfectious)
	}
	switch s.ContactModel {
	case "symmetric", "pairwise", "sqrt":
	default:
		return fmt.Errorf("unknown contactModel %q", s.ContactModel)
	}
	switch s.InfectionModel {
	case "antibodies", "seasonality":
	default:
		return fmt.Errorf("unknown infectionModel %q", s.InfectionModel)
	}
	switch s.ProgressionDecider {
	case "default", "ageDependent":
	default:
		return fmt.Errorf("unknown progressionDecider %q", s.ProgressionDecider)
	}
	if len(s.Strains) == 0 {
		return fmt.Errorf("at least one strain must be configured")
	}
	for name, a := range s.Activities {
		a.Name = name
		if a.ContactIntensity < 0 {
			return fmt.Errorf("activity %q: contactIntensity must be >= 0", name)
		}
		if a.Spaces <= 0 {
			a.Spaces = 1
		}
	}
	for _, required := range []string{"home", "quarantine_home", "pt"} {
		if _, ok := s.Activities[required]; !ok {
			return fmt.Errorf("activity %q must be configured", required)
		}
	}
	for _, seed := range s.InitialInfections {
		if _, ok := s.Strains[seed.Strain]; !ok {
			return fmt.Errorf("initial infection references unknown strain %q", seed.Strain)
		}
	}
	for act := range s.Restrictions {
		if _, ok := s.Activities[act]; !ok {
			return fmt.Errorf("restriction references unknown activity %q", act)
		}
	}
	if s.Tracing.Probability < 0 || s.Tracing.Probability > 1 {
		return fmt.Errorf("tracing probability must be in [0,1] but is %f", s.Tracing.Probability)
	}
	if s.Antibodies.HalfLifeDays <= 0 {
		return fmt.Errorf("antibody halfLifeDays must be > 0 but is %f", s.Antibodies.HalfLifeDays)
	}
	return nil
}
