package infection_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/infection"
	"github.com/sgrunder/contagion/internal/policy"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

var maskTypes = map[string]scenario.MaskParams{
	"cloth": {Shedding: 0.6, Intake: 0.5},
	"n95":   {Shedding: 0.15, Intake: 0.025},
}

func TestNoMandateMeansNoEffect(t *testing.T) {
	m := infection.NewMaskModel(1, maskTypes, 1)
	m.SetDay(rng.New(1))

	p := population.NewPerson(0, 30, "h", nil)
	require.Equal(t, 1.0, m.Shedding(p, policy.None()))
	require.Equal(t, 1.0, m.Intake(p, policy.None()))
}

func TestFullComplianceWearsMask(t *testing.T) {
	m := infection.NewMaskModel(1, maskTypes, 1)
	m.SetDay(rng.New(1))

	r := policy.None()
	r.RequireMask = "n95"

	p := population.NewPerson(0, 30, "h", nil)
	require.Equal(t, 0.15, m.Shedding(p, r))
	require.Equal(t, 0.025, m.Intake(p, r))
}

func TestZeroComplianceNeverWears(t *testing.T) {
	m := infection.NewMaskModel(0, maskTypes, 1)
	m.SetDay(rng.New(1))

	r := policy.None()
	r.RequireMask = "cloth"

	p := population.NewPerson(0, 30, "h", nil)
	require.Equal(t, 1.0, m.Shedding(p, r))
	require.Equal(t, 1.0, m.Intake(p, r))
}

func TestPartialComplianceSplitsPopulation(t *testing.T) {
	n := 10000
	m := infection.NewMaskModel(0.5, maskTypes, n)
	m.SetDay(rng.New(1))

	r := policy.None()
	r.RequireMask = "cloth"

	wearing := 0
	for i := 0; i < n; i++ {
		p := population.NewPerson(population.ID(i), 30, "h", nil)
		if m.Shedding(p, r) != 1.0 {
			wearing++
		}
	}
	require.InDelta(t, float64(n)/2, float64(wearing), float64(n)/20)
}

func TestUnknownMaskTypeHasNoEffect(t *testing.T) {
	m := infection.NewMaskModel(1, maskTypes, 1)
	m.SetDay(rng.New(1))

	r := policy.None()
	r.RequireMask = "ffp9"

	p := population.NewPerson(0, 30, "h", nil)
	require.Equal(t, 1.0, m.Shedding(p, r))
}
