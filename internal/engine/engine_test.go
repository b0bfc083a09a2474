package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/engine"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/replay"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	cfg := scenario.Default()
	cfg.Days = 14
	cfg.Population.Size = 400
	require.NoError(t, cfg.Validate())
	return cfg
}

func buildEngine(t *testing.T, cfg *scenario.Scenario, rep events.Reporter) *engine.Engine {
	t.Helper()
	source, err := replay.BuildSynthetic(cfg, rng.New(cfg.Seed+1))
	require.NoError(t, err)
	e, err := engine.New(cfg, source, rep, quietLogger())
	require.NoError(t, err)
	return e
}

func TestRunProducesDailyReports(t *testing.T) {
	cfg := smallScenario(t)
	rec := &events.Recorder{}
	e := buildEngine(t, cfg, rec)

	reports, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, reports)
	require.LessOrEqual(t, len(reports), cfg.Days)

	for i, rep := range reports {
		require.Equal(t, i+1, rep.Day)
		total := 0
		for _, n := range rep.ByStatus {
			total += n
		}
		require.Equal(t, cfg.Population.Size, total)
	}
}

func TestSeedingInfectsConfiguredCount(t *testing.T) {
	cfg := smallScenario(t)
	cfg.Days = 1
	cfg.InitialInfections = []scenario.SeedingEntry{{Day: 1, Strain: "base", Count: 7}}

	rec := &events.Recorder{}
	e := buildEngine(t, cfg, rec)

	reports, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, 7, reports[0].InfectionsByStrain["base"])
	require.Len(t, rec.Infections, 7)
	for _, ev := range rec.Infections {
		require.Equal(t, population.ID(-1), ev.Infector)
		require.Equal(t, "base", ev.Strain)
	}
}

func TestZeroCalibrationOnlySeedsInfect(t *testing.T) {
	cfg := smallScenario(t)
	cfg.Calibration = 0
	cfg.InitialInfections = []scenario.SeedingEntry{{Day: 1, Strain: "base", Count: 4}}

	rec := &events.Recorder{}
	e := buildEngine(t, cfg, rec)

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.Infections, 4)
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() ([]*events.DayReport, *events.Recorder) {
		cfg := smallScenario(t)
		rec := &events.Recorder{}
		e := buildEngine(t, cfg, rec)
		reports, err := e.Run(context.Background())
		require.NoError(t, err)
		return reports, rec
	}

	repA, recA := run()
	repB, recB := run()

	require.Equal(t, len(repA), len(repB))
	for i := range repA {
		require.Equal(t, repA[i].ByStatus, repB[i].ByStatus)
		require.Equal(t, repA[i].InfectionsByStrain, repB[i].InfectionsByStrain)
	}
	require.Equal(t, recA.Infections, recB.Infections)
	require.Equal(t, recA.StatusChanges, recB.StatusChanges)
}

func TestWorkerCountDoesNotChangeResults(t *testing.T) {
	run := func(workers int) []*events.DayReport {
		cfg := smallScenario(t)
		cfg.Workers = workers
		e := buildEngine(t, cfg, events.Discard{})
		reports, err := e.Run(context.Background())
		require.NoError(t, err)
		return reports
	}

	serial := run(1)
	parallel := run(4)

	require.Equal(t, len(serial), len(parallel))
	for i := range serial {
		require.Equal(t, serial[i].ByStatus, parallel[i].ByStatus)
	}
}

func TestEpidemicSpreadsBeyondSeeds(t *testing.T) {
	cfg := smallScenario(t)
	cfg.Days = 30
	cfg.Calibration = 5e-4

	rec := &events.Recorder{}
	e := buildEngine(t, cfg, rec)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	secondary := 0
	for _, ev := range rec.Infections {
		if ev.Infector >= 0 {
			secondary++
		}
	}
	require.NotZero(t, secondary)
}

func TestVaccinationEvents(t *testing.T) {
	cfg := smallScenario(t)
	cfg.Days = 2
	cfg.InitialInfections = nil
	cfg.Vaccinations = []scenario.VaccinationEntry{{Day: 1, Type: "mRNA", Count: 50}}

	rec := &events.Recorder{}
	e := buildEngine(t, cfg, rec)

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.Vaccinations, 50)
	for _, ev := range rec.Vaccinations {
		require.Equal(t, "mRNA", ev.Type)
		require.Equal(t, 1, ev.Dose)
	}
}

func TestRunStopsWithoutEpidemicActivity(t *testing.T) {
	cfg := smallScenario(t)
	cfg.Days = 50
	cfg.InitialInfections = nil
	cfg.Vaccinations = nil

	e := buildEngine(t, cfg, events.Discard{})
	reports, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	cfg := smallScenario(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := buildEngine(t, cfg, events.Discard{})
	_, err := e.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestContactModelsRunCleanly(t *testing.T) {
	for _, model := range []string{"symmetric", "pairwise", "sqrt"} {
		t.Run(model, func(t *testing.T) {
			cfg := smallScenario(t)
			cfg.Days = 7
			cfg.ContactModel = model

			e := buildEngine(t, cfg, events.Discard{})
			_, err := e.Run(context.Background())
			require.NoError(t, err)
		})
	}
}

func TestSeasonalityModelRunsCleanly(t *testing.T) {
	cfg := smallScenario(t)
	cfg.Days = 7
	cfg.InfectionModel = "seasonality"

	e := buildEngine(t, cfg, events.Discard{})
	_, err := e.Run(context.Background())
	require.NoError(t, err)
}

func TestInvalidRestrictionFailsConstruction(t *testing.T) {
	cfg := smallScenario(t)
	bad := -0.5
	cfg.Restrictions = map[string]scenario.RestrictionConfig{
		"leisure": {RemainingFraction: &bad},
	}

	source, err := replay.BuildSynthetic(cfg, rng.New(1))
	require.NoError(t, err)
	_, err = engine.New(cfg, source, events.Discard{}, quietLogger())
	require.Error(t, err)
}
