package events

import "github.com/sgrunder/contagion/internal/population"

// DayReport aggregates the population state at the end of one day.
type DayReport struct {
	Day int

	// ByStatus counts persons per disease status.
	ByStatus [population.NumStatuses]int

	// InfectionsByStrain counts new infections of this day per strain.
	InfectionsByStrain map[string]int

	InQuarantineFull int
	InQuarantineHome int
}

// TotalInfected counts everyone currently on the infected branch of the
// state graph.
func (r *DayReport) TotalInfected() int {
	total := 0
	for s := population.InfectedButNotContagious; s <= population.SeriouslySickAfterCritical; s++ {
		total += r.ByStatus[s]
	}
	return total
}

// BuildDayReport scans the arena and tallies the day's state.
func BuildDayReport(day int, arena *population.Arena, newInfections map[string]int) *DayReport {
	rep := &DayReport{Day: day, InfectionsByStrain: newInfections}
	for _, p := range arena.All() {
		rep.ByStatus[p.Status()]++
		switch p.Quarantine() {
		case population.QuarantineFull:
			rep.InQuarantineFull++
		case population.QuarantineAtHome:
			rep.InQuarantineHome++
		}
	}
	return rep
}
