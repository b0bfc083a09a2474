package events_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
)

func TestRecorderKeepsEmissionOrder(t *testing.T) {
	rec := &events.Recorder{}

	rec.ReportInfection(events.InfectionEvent{Day: 1, Target: 5})
	rec.ReportInfection(events.InfectionEvent{Day: 2, Target: 6})
	rec.ReportStatusChange(events.StatusChangeEvent{Day: 2, Person: 5})
	rec.ReportContact(events.ContactEvent{Day: 1, PersonA: 1, PersonB: 2})
	rec.ReportVaccination(events.VaccinationEvent{Day: 3, Person: 7})

	require.Len(t, rec.Infections, 2)
	require.Equal(t, population.ID(5), rec.Infections[0].Target)
	require.Len(t, rec.StatusChanges, 1)
	require.Len(t, rec.Contacts, 1)
	require.Len(t, rec.Vaccinations, 1)
}

func TestTeeDuplicates(t *testing.T) {
	a := &events.Recorder{}
	b := &events.Recorder{}
	tee := events.Tee{a, b}

	tee.ReportInfection(events.InfectionEvent{Day: 1})
	tee.ReportContact(events.ContactEvent{Day: 1})
	tee.ReportStatusChange(events.StatusChangeEvent{Day: 1})
	tee.ReportVaccination(events.VaccinationEvent{Day: 1})

	require.Len(t, a.Infections, 1)
	require.Len(t, b.Infections, 1)
	require.Len(t, a.Contacts, 1)
	require.Len(t, b.StatusChanges, 1)
	require.Len(t, b.Vaccinations, 1)
}

func TestBuildDayReport(t *testing.T) {
	arena := population.NewArena()
	healthy := arena.Add(30, "h1", nil)
	sick := arena.Add(40, "h2", nil)
	quarantined := arena.Add(50, "h3", nil)

	require.NoError(t, sick.SetStatus(2, population.InfectedButNotContagious))
	quarantined.SetQuarantine(population.QuarantineAtHome, 2)
	_ = healthy

	rep := events.BuildDayReport(2, arena, map[string]int{"base": 1})

	require.Equal(t, 2, rep.Day)
	require.Equal(t, 2, rep.ByStatus[population.Susceptible])
	require.Equal(t, 1, rep.ByStatus[population.InfectedButNotContagious])
	require.Equal(t, 1, rep.TotalInfected())
	require.Equal(t, 1, rep.InQuarantineHome)
	require.Zero(t, rep.InQuarantineFull)
	require.Equal(t, 1, rep.InfectionsByStrain["base"])
}

func TestTotalInfectedExcludesRecovered(t *testing.T) {
	arena := population.NewArena()
	p := arena.Add(30, "h1", nil)
	require.NoError(t, p.SetStatus(1, population.InfectedButNotContagious))
	require.NoError(t, p.SetStatus(4, population.Contagious))
	require.NoError(t, p.SetStatus(10, population.Recovered))

	rep := events.BuildDayReport(10, arena, nil)
	require.Zero(t, rep.TotalInfected())
	require.Equal(t, 1, rep.ByStatus[population.Recovered])
}
