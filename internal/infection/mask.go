package infection

import (
	"github.com/sgrunder/contagion/internal/policy"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

// MaskModel decides who wears a mandated face covering and looks up its
// hazard multipliers. Wearing decisions are drawn once per day for the
// whole population before the container tasks start, so lookups during
// parallel contact evaluation are read-only.
type MaskModel struct {
	compliance float64
	masks      map[string]scenario.MaskParams

	wearing []bool
}

// NewMaskModel creates the model for a population of the given size.
func NewMaskModel(compliance float64, masks map[string]scenario.MaskParams, populationSize int) *MaskModel {
	return &MaskModel{
		compliance: compliance,
		masks:      masks,
		wearing:    make([]bool, populationSize),
	}
}

// SetDay redraws the wearing decision of every person.
func (m *MaskModel) SetDay(r *rng.Rand) {
	for i := range m.wearing {
		switch m.compliance {
		case 0:
			m.wearing[i] = false
		case 1:
			m.wearing[i] = true
		default:
			m.wearing[i] = r.Float64() < m.compliance
		}
	}
}

// Shedding returns the outgoing hazard multiplier of the infector's
// worn mask, 1 if none is worn.
func (m *MaskModel) Shedding(p *population.Person, r *policy.Restriction) float64 {
	if mask, ok := m.worn(p, r); ok {
		return mask.Shedding
	}
	return 1
}

// Intake returns the incoming hazard multiplier of the target's worn
// mask, 1 if none is worn.
func (m *MaskModel) Intake(p *population.Person, r *policy.Restriction) float64 {
	if mask, ok := m.worn(p, r); ok {
		return mask.Intake
	}
	return 1
}

func (m *MaskModel) worn(p *population.Person, r *policy.Restriction) (scenario.MaskParams, bool) {
	if r.RequireMask == "" {
		return scenario.MaskParams{}, false
	}
	if int(p.ID) >= len(m.wearing) || !m.wearing[p.ID] {
		return scenario.MaskParams{}, false
	}
	mask, ok := m.masks[r.RequireMask]
	return mask, ok
}
