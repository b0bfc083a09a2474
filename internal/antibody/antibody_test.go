package antibody_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/antibody"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

func config() scenario.AntibodyConfig {
	return scenario.AntibodyConfig{
		HalfLifeDays: 80,
		MaxTiter:     150,
		Initial: map[string]map[string]float64{
			"base": {"base": 1},
			"mRNA": {"base": 2},
		},
		Refresh: map[string]map[string]float64{
			"base": {"base": 10},
			"mRNA": {"base": 20},
		},
	}
}

func TestNewModelValidation(t *testing.T) {
	t.Run("zero half life", func(t *testing.T) {
		cfg := config()
		cfg.HalfLifeDays = 0
		_, err := antibody.NewModel(cfg, []string{"base"})
		require.Error(t, err)
	})

	t.Run("zero max titer", func(t *testing.T) {
		cfg := config()
		cfg.MaxTiter = 0
		_, err := antibody.NewModel(cfg, []string{"base"})
		require.Error(t, err)
	})

	t.Run("initial misses a strain", func(t *testing.T) {
		cfg := config()
		_, err := antibody.NewModel(cfg, []string{"base", "alpha"})
		require.Error(t, err)
	})

	t.Run("initial without refresh", func(t *testing.T) {
		cfg := config()
		delete(cfg.Refresh, "mRNA")
		_, err := antibody.NewModel(cfg, []string{"base"})
		require.Error(t, err)
	})

	t.Run("refresh factor below one", func(t *testing.T) {
		cfg := config()
		cfg.Refresh["base"]["base"] = 0.5
		_, err := antibody.NewModel(cfg, []string{"base"})
		require.Error(t, err)
	})
}

func TestDecayFactor(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)
	require.InDelta(t, math.Pow(0.5, 1.0/80), m.DecayFactor(), 1e-12)
}

func TestUpdateDecays(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetAntibodies("base", 100)

	require.NoError(t, m.Update(p, 10))
	require.InDelta(t, 100*m.DecayFactor(), p.Antibodies("base"), 1e-9)
}

func TestUpdatePrimesDayAfterInfection(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.RecordInfection("base", 5)

	// infection day itself does not immunize
	require.NoError(t, m.Update(p, 5))
	require.Zero(t, p.Antibodies("base"))

	require.NoError(t, m.Update(p, 6))
	require.Equal(t, 1.0, p.Antibodies("base"))
}

func TestUpdateBoostsExistingTiter(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetAntibodies("base", 2)
	p.RecordVaccination("mRNA", 9)

	require.NoError(t, m.Update(p, 10))
	// the event day boosts without decaying first
	require.InDelta(t, 2*20.0, p.Antibodies("base"), 1e-9)
}

func TestEventDayAppliesNoDecay(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.RecordInfection("base", 0)

	require.NoError(t, m.Update(p, 1))
	require.Equal(t, 1.0, p.Antibodies("base"))

	// nine quiet days of pure decay
	for day := 2; day <= 10; day++ {
		require.NoError(t, m.Update(p, day))
	}
	decayed := math.Pow(m.DecayFactor(), 9)
	require.InDelta(t, decayed, p.Antibodies("base"), 1e-9)

	p.RecordVaccination("base", 10)
	require.NoError(t, m.Update(p, 11))
	require.InDelta(t, decayed*10, p.Antibodies("base"), 1e-9)
}

func TestBoostIsCappedAtMaxTiter(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetAntibodies("base", 100)
	p.RecordVaccination("mRNA", 9)

	require.NoError(t, m.Update(p, 10))
	require.Equal(t, 150.0, p.Antibodies("base"))
}

func TestBoostNeverBelowInitial(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetAntibodies("base", 0.01)
	p.RecordVaccination("mRNA", 9)

	require.NoError(t, m.Update(p, 10))
	require.GreaterOrEqual(t, p.Antibodies("base"), 2.0)
}

func TestPrimingIsCappedAtMaxTiter(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetImmuneResponse(200)
	p.RecordInfection("base", 5)

	require.NoError(t, m.Update(p, 6))
	require.Equal(t, 150.0, p.Antibodies("base"))
}

func TestWeakResponderBoostNeverShrinksTiter(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetImmuneResponse(0.01)
	p.SetAntibodies("base", 5)
	p.RecordVaccination("mRNA", 9)

	// refresh 20 times response 0.01 is below one, so no multiplication
	require.NoError(t, m.Update(p, 10))
	require.Equal(t, 5.0, p.Antibodies("base"))
}

func TestUnknownEventFails(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.RecordInfection("omega", 5)

	require.ErrorIs(t, m.Update(p, 6), antibody.ErrUnknownEvent)
}

func TestImmuneResponseScalesGain(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	p.SetImmuneResponse(0.5)
	p.RecordInfection("base", 5)

	require.NoError(t, m.Update(p, 6))
	require.Equal(t, 0.5, p.Antibodies("base"))
}

func TestDrawImmuneResponseSigmaZeroKeepsDefault(t *testing.T) {
	m, err := antibody.NewModel(config(), []string{"base"})
	require.NoError(t, err)

	p := population.NewPerson(0, 30, "h", nil)
	m.DrawImmuneResponse(p, rng.New(1))
	require.Equal(t, 1.0, p.ImmuneResponse())
}

func TestDrawImmuneResponseHasMeanOne(t *testing.T) {
	cfg := config()
	cfg.ImmuneResponseSigma = 0.5
	m, err := antibody.NewModel(cfg, []string{"base"})
	require.NoError(t, err)

	r := rng.New(77)
	sum := 0.0
	n := 20000
	for i := 0; i < n; i++ {
		p := population.NewPerson(0, 30, "h", nil)
		m.DrawImmuneResponse(p, r)
		sum += p.ImmuneResponse()
	}
	require.InDelta(t, 1.0, sum/float64(n), 0.05)
}
