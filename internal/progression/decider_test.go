package progression_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/progression"
	"github.com/sgrunder/contagion/internal/rng"
)

func personWith(t *testing.T, day int, path ...population.DiseaseStatus) *population.Person {
	t.Helper()
	p := population.NewPerson(0, 30, "h", nil)
	for i, s := range path {
		require.NoError(t, p.SetStatus(day-len(path)+i+1, s))
	}
	return p
}

func TestDeterministicBranches(t *testing.T) {
	r := rng.New(1)
	d := progression.DefaultDecider{}

	cases := []struct {
		path []population.DiseaseStatus
		want population.DiseaseStatus
	}{
		{[]population.DiseaseStatus{population.InfectedButNotContagious}, population.Contagious},
		{[]population.DiseaseStatus{population.InfectedButNotContagious, population.Contagious,
			population.ShowingSymptoms, population.SeriouslySick, population.Critical},
			population.SeriouslySickAfterCritical},
		{[]population.DiseaseStatus{population.InfectedButNotContagious, population.Contagious,
			population.ShowingSymptoms, population.SeriouslySick, population.Critical,
			population.SeriouslySickAfterCritical},
			population.Recovered},
		{[]population.DiseaseStatus{population.InfectedButNotContagious, population.Contagious,
			population.Recovered},
			population.Susceptible},
	}

	for _, tc := range cases {
		p := personWith(t, 10, tc.path...)
		next, err := d.DecideNextState(r, p, 10)
		require.NoError(t, err)
		require.Equal(t, tc.want, next)
	}
}

func TestContagiousBranchRatio(t *testing.T) {
	r := rng.New(2)
	d := progression.DefaultDecider{}

	symptoms := 0
	n := 10000
	for i := 0; i < n; i++ {
		p := personWith(t, 10, population.InfectedButNotContagious, population.Contagious)
		next, err := d.DecideNextState(r, p, 10)
		require.NoError(t, err)
		if next == population.ShowingSymptoms {
			symptoms++
		} else {
			require.Equal(t, population.Recovered, next)
		}
	}
	require.InDelta(t, 0.8, float64(symptoms)/float64(n), 0.02)
}

func TestSeriouslySickNeverCriticalTwice(t *testing.T) {
	r := rng.New(3)
	d := progression.DefaultDecider{}

	for i := 0; i < 1000; i++ {
		p := personWith(t, 20, population.InfectedButNotContagious, population.Contagious,
			population.ShowingSymptoms, population.SeriouslySick, population.Critical,
			population.SeriouslySickAfterCritical, population.Recovered)
		// re-infection back into the hospital branch
		require.NoError(t, p.SetStatus(21, population.Susceptible))
		require.NoError(t, p.SetStatus(22, population.InfectedButNotContagious))
		require.NoError(t, p.SetStatus(24, population.Contagious))
		require.NoError(t, p.SetStatus(26, population.ShowingSymptoms))
		require.NoError(t, p.SetStatus(28, population.SeriouslySick))

		next, err := d.DecideNextState(r, p, 28)
		require.NoError(t, err)
		require.Equal(t, population.Recovered, next)
	}
}

func TestAgeDependentHospitalization(t *testing.T) {
	r := rng.New(4)
	d := progression.AgeDependentDecider{}

	rate := func(age int) float64 {
		severe := 0
		n := 20000
		for i := 0; i < n; i++ {
			p := population.NewPerson(0, age, "h", nil)
			require.NoError(t, p.SetStatus(1, population.InfectedButNotContagious))
			require.NoError(t, p.SetStatus(3, population.Contagious))
			require.NoError(t, p.SetStatus(5, population.ShowingSymptoms))
			next, err := d.DecideNextState(r, p, 5)
			require.NoError(t, err)
			if next == population.SeriouslySick {
				severe++
			}
		}
		return float64(severe) / float64(n)
	}

	young := rate(10)
	old := rate(85)
	require.InDelta(t, 0.011, young, 0.005)
	require.InDelta(t, 0.36, old, 0.02)
}

func TestHospitalFactorScales(t *testing.T) {
	r := rng.New(5)
	d := progression.AgeDependentDecider{HospitalFactor: 0}

	// zero factor falls back to 1, so mid-aged symptoms still hospitalize sometimes
	severe := 0
	for i := 0; i < 20000; i++ {
		p := population.NewPerson(0, 70, "h", nil)
		require.NoError(t, p.SetStatus(1, population.InfectedButNotContagious))
		require.NoError(t, p.SetStatus(3, population.Contagious))
		require.NoError(t, p.SetStatus(5, population.ShowingSymptoms))
		next, err := d.DecideNextState(r, p, 5)
		require.NoError(t, err)
		if next == population.SeriouslySick {
			severe++
		}
	}
	require.InDelta(t, 0.23, float64(severe)/20000, 0.02)
}

func TestReinfectionIsMilder(t *testing.T) {
	r := rng.New(6)
	d := progression.AgeDependentDecider{}

	severe := 0
	n := 20000
	for i := 0; i < n; i++ {
		p := population.NewPerson(0, 85, "h", nil)
		p.RecordInfection("base", 1)
		require.NoError(t, p.SetStatus(1, population.InfectedButNotContagious))
		require.NoError(t, p.SetStatus(3, population.Contagious))
		require.NoError(t, p.SetStatus(10, population.Recovered))
		require.NoError(t, p.SetStatus(40, population.Susceptible))
		p.RecordInfection("base", 41)
		require.NoError(t, p.SetStatus(41, population.InfectedButNotContagious))
		require.NoError(t, p.SetStatus(43, population.Contagious))
		require.NoError(t, p.SetStatus(45, population.ShowingSymptoms))

		next, err := d.DecideNextState(r, p, 45)
		require.NoError(t, err)
		if next == population.SeriouslySick {
			severe++
		}
	}

	// protection 35 days after recovery reduces 0.36 to about 0.007
	factor := 0.2 * 35.0 / 365
	require.InDelta(t, 0.36*factor, float64(severe)/float64(n), 0.005)
}
