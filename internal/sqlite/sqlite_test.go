package sqlite_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/sqlite"
)

func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.RunMigrations())
}

func TestRunLifecycle(t *testing.T) {
	db := testDB(t)
	store := sqlite.NewRunStore(db)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "baseline", 4711, 90, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	require.Nil(t, run.FinishedAt)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, "baseline", got.Label)
	require.Equal(t, uint64(4711), got.Seed)
	require.Equal(t, 90, got.Days)
	require.Equal(t, 1000, got.Population)
	require.Nil(t, got.FinishedAt)

	require.NoError(t, store.FinishRun(ctx, run.ID))
	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
}

func TestGetRunNotFound(t *testing.T) {
	db := testDB(t)
	store := sqlite.NewRunStore(db)

	_, err := store.GetRun(context.Background(), "nope")
	require.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestFinishRunNotFound(t *testing.T) {
	db := testDB(t)
	store := sqlite.NewRunStore(db)

	err := store.FinishRun(context.Background(), "nope")
	require.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestListRuns(t *testing.T) {
	db := testDB(t)
	store := sqlite.NewRunStore(db)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "a", 1, 10, 100)
	require.NoError(t, err)
	_, err = store.CreateRun(ctx, "b", 2, 20, 200)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}

func TestReporterRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	run, err := sqlite.NewRunStore(db).CreateRun(ctx, "r", 1, 10, 100)
	require.NoError(t, err)

	rep := sqlite.NewReporter(db, run.ID, quietLogger())

	rep.ReportInfection(events.InfectionEvent{
		Day: 2, Time: 90000, Target: 5, Infector: 9,
		ContainerID: "work_1", InfectionType: "work_work", Strain: "base", Probability: 0.4,
	})
	rep.ReportInfection(events.InfectionEvent{
		Day: 3, Time: 180000, Target: 6, Infector: 5,
		ContainerID: "home_2", InfectionType: "home_home", Strain: "base", Probability: 0.9,
	})

	q := sqlite.NewQueryStore(db)
	all, err := q.ListInfections(ctx, run.ID, -1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, population.ID(5), all[0].Target)
	require.Equal(t, population.ID(9), all[0].Infector)
	require.Equal(t, "work_1", all[0].ContainerID)
	require.Equal(t, 0.4, all[0].Probability)

	day3, err := q.ListInfections(ctx, run.ID, 3)
	require.NoError(t, err)
	require.Len(t, day3, 1)
	require.Equal(t, population.ID(6), day3[0].Target)
}

func TestReporterContactsOffByDefault(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	run, err := sqlite.NewRunStore(db).CreateRun(ctx, "r", 1, 10, 100)
	require.NoError(t, err)

	rep := sqlite.NewReporter(db, run.ID, quietLogger())
	rep.ReportContact(events.ContactEvent{Day: 1, PersonA: 1, PersonB: 2})

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n))
	require.Zero(t, n)

	rep.PersistContacts = true
	rep.ReportContact(events.ContactEvent{Day: 1, PersonA: 1, PersonB: 2, ContainerID: "home_1", InfectionType: "home_home", Duration: 1200})
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestStatusChangeHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	run, err := sqlite.NewRunStore(db).CreateRun(ctx, "r", 1, 10, 100)
	require.NoError(t, err)

	rep := sqlite.NewReporter(db, run.ID, quietLogger())
	rep.ReportStatusChange(events.StatusChangeEvent{
		Day: 3, Time: 3 * 86400, Person: 5,
		From: population.Susceptible, To: population.InfectedButNotContagious,
	})
	rep.ReportStatusChange(events.StatusChangeEvent{
		Day: 6, Time: 6 * 86400, Person: 5,
		From: population.InfectedButNotContagious, To: population.Contagious,
	})

	q := sqlite.NewQueryStore(db)
	history, err := q.StatusChangesForPerson(ctx, run.ID, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, population.InfectedButNotContagious, history[0].To)
	require.Equal(t, population.Contagious, history[1].To)
}

func TestDayReportPersistence(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	run, err := sqlite.NewRunStore(db).CreateRun(ctx, "r", 1, 10, 100)
	require.NoError(t, err)

	rep := sqlite.NewReporter(db, run.ID, quietLogger())

	day := &events.DayReport{Day: 1, InfectionsByStrain: map[string]int{"base": 3}}
	day.ByStatus[population.Susceptible] = 97
	day.ByStatus[population.InfectedButNotContagious] = 3
	day.InQuarantineHome = 2

	require.NoError(t, rep.SaveDayReport(ctx, day))

	// saving the same day twice collides
	require.ErrorIs(t, rep.SaveDayReport(ctx, day), sqlite.ErrConflict)

	q := sqlite.NewQueryStore(db)
	curve, err := q.DayCurve(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, curve, population.NumStatuses)

	counts := map[string]int{}
	for _, sc := range curve {
		require.Equal(t, 1, sc.Day)
		counts[sc.Status] = sc.Count
	}
	require.Equal(t, 97, counts["susceptible"])
	require.Equal(t, 3, counts["infectedButNotContagious"])

	byDay, err := q.NewInfectionsByDay(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, map[int]int{1: 3}, byDay)
}

func TestVaccinationPersistence(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	run, err := sqlite.NewRunStore(db).CreateRun(ctx, "r", 1, 10, 100)
	require.NoError(t, err)

	rep := sqlite.NewReporter(db, run.ID, quietLogger())
	rep.ReportVaccination(events.VaccinationEvent{Day: 4, Person: 8, Type: "mRNA", Dose: 1})

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vaccinations WHERE run_id = ?`, run.ID).Scan(&n))
	require.Equal(t, 1, n)
}
