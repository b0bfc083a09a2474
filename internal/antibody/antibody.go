// Package antibody implements the per-strain immunity model: titers
// decay exponentially, immunization events prime or boost them, and the
// resulting level feeds into the infection hazard.
package antibody

import (
	"errors"
	"fmt"
	"math"

	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

// ErrUnknownEvent is returned when an immunization event (infecting
// strain or vaccination type) has no entry in the response tables.
var ErrUnknownEvent = errors.New("no antibody response configured")

// Model updates a person's antibody titers once per simulated day.
type Model struct {
	decay    float64
	maxTiter float64
	sigma    float64

	initial map[string]map[string]float64
	refresh map[string]map[string]float64

	strains []string
}

// NewModel validates the response tables against the configured strains
// and vaccination types. Every event present in either table must cover
// every strain; holes would otherwise only surface mid-run.
func NewModel(cfg scenario.AntibodyConfig, strains []string) (*Model, error) {
	if cfg.HalfLifeDays <= 0 {
		return nil, fmt.Errorf("halfLifeDays must be > 0 but is %f", cfg.HalfLifeDays)
	}
	if cfg.MaxTiter <= 0 {
		return nil, fmt.Errorf("maxTiter must be > 0 but is %f", cfg.MaxTiter)
	}
	for event, byStrain := range cfg.Initial {
		for _, strain := range strains {
			if _, ok := byStrain[strain]; !ok {
				return nil, fmt.Errorf("initial response of event %q misses strain %q", event, strain)
			}
		}
		if _, ok := cfg.Refresh[event]; !ok {
			return nil, fmt.Errorf("event %q has initial but no refresh response", event)
		}
	}
	for event, byStrain := range cfg.Refresh {
		for strain, factor := range byStrain {
			if factor < 1 {
				return nil, fmt.Errorf("refresh factor of event %q for strain %q must be >= 1 but is %f", event, strain, factor)
			}
		}
		for _, strain := range strains {
			if _, ok := byStrain[strain]; !ok {
				return nil, fmt.Errorf("refresh response of event %q misses strain %q", event, strain)
			}
		}
	}
	return &Model{
		decay:    math.Pow(0.5, 1/cfg.HalfLifeDays),
		maxTiter: cfg.MaxTiter,
		sigma:    cfg.ImmuneResponseSigma,
		initial:  cfg.Initial,
		refresh:  cfg.Refresh,
		strains:  strains,
	}, nil
}

// DecayFactor returns the daily multiplicative titer decay.
func (m *Model) DecayFactor() float64 { return m.decay }

// DrawImmuneResponse assigns the person's antibody gain multiplier. The
// multiplier is log-normal with mean one; a sigma of zero keeps the
// deterministic default and consumes no draw.
func (m *Model) DrawImmuneResponse(p *population.Person, r *rng.Rand) {
	if m.sigma == 0 {
		return
	}
	p.SetImmuneResponse(r.LogNormal(-m.sigma*m.sigma/2, m.sigma))
}

// Update advances the person's titers to the given day: an immunization
// event of the previous day primes or boosts them, otherwise they decay.
// Event days never decay. Must run before any exposure of the day so
// that fresh immunity is effective from the day after the event.
func (m *Model) Update(p *population.Person, day int) error {
	if vaccinationType, ok := p.VaccinationOnDay(day - 1); ok {
		return m.apply(p, vaccinationType)
	}
	if strain, ok := p.InfectionOnDay(day - 1); ok {
		return m.apply(p, strain)
	}

	for _, strain := range m.strains {
		if titer := p.Antibodies(strain); titer > 0 {
			p.SetAntibodies(strain, titer*m.decay)
		}
	}
	return nil
}

func (m *Model) apply(p *population.Person, event string) error {
	initial, ok := m.initial[event]
	if !ok {
		return fmt.Errorf("%w: event %q", ErrUnknownEvent, event)
	}
	refresh := m.refresh[event]

	if !p.HasAntibodies() {
		for _, strain := range m.strains {
			p.SetAntibodies(strain, math.Min(m.maxTiter, initial[strain]*p.ImmuneResponse()))
		}
		return nil
	}

	for _, strain := range m.strains {
		titer := p.Antibodies(strain)
		// a weak responder's boost must never shrink the titer
		if factor := refresh[strain] * p.ImmuneResponse(); factor >= 1 {
			titer *= factor
		}
		titer = math.Max(titer, initial[strain]*p.ImmuneResponse())
		p.SetAntibodies(strain, math.Min(m.maxTiter, titer))
	}
	return nil
}
