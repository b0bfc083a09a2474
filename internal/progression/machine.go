// Package progression advances infected persons through the clinical
// state graph. Transitions are pre-committed: on every status change
// the next status and its day are drawn immediately, so other models
// can introspect the already decided future.
package progression

import (
	"math"
	"sort"

	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
	"github.com/sgrunder/contagion/internal/transition"
)

const daySeconds = 24 * 3600

type committed struct {
	status population.DiseaseStatus
	day    int32
	valid  bool
}

// Machine is the disease progression state machine including contact
// tracing and quarantine handling. It must only be driven from the
// sequential day-boundary phase.
type Machine struct {
	matrix  *transition.Matrix
	decider StateDecider

	cfg        scenario.TracingConfig
	sampleSize float64

	arena    *population.Arena
	reporter events.Reporter

	next []committed

	day          int
	capacityLeft int
}

// NewMachine creates the progression machine for the given population.
func NewMachine(matrix *transition.Matrix, decider StateDecider, cfg scenario.TracingConfig,
	sampleSize float64, arena *population.Arena, reporter events.Reporter) *Machine {
	return &Machine{
		matrix:     matrix,
		decider:    decider,
		cfg:        cfg,
		sampleSize: sampleSize,
		arena:      arena,
		reporter:   reporter,
		next:       make([]committed, arena.Len()),
	}
}

// SetDay resets the per-day tracing capacity budget.
func (m *Machine) SetDay(day int) {
	m.day = day
	if m.cfg.Capacity < 0 {
		m.capacityLeft = math.MaxInt
	} else {
		m.capacityLeft = int(math.Round(float64(m.cfg.Capacity) * m.sampleSize))
	}
}

// NextDiseaseStatus returns the pre-committed next status of a person.
func (m *Machine) NextDiseaseStatus(id population.ID) population.DiseaseStatus {
	return m.next[id].status
}

// NextTransitionDay returns the pre-committed dwell time in days until
// the next transition of a person.
func (m *Machine) NextTransitionDay(id population.ID) int {
	return int(m.next[id].day)
}

// TracingCapacityLeft returns the remaining tracing budget of the day.
func (m *Machine) TracingCapacityLeft() int { return m.capacityLeft }

// UpdateState progresses one person on the given day, cascading through
// zero-dwell transitions, and handles quarantine release and delayed
// tracing.
func (m *Machine) UpdateState(p *population.Person, day int, r *rng.Rand) error {
	if err := m.progress(p, day, r); err != nil {
		return err
	}

	now := float64(day) * daySeconds

	if p.Quarantine() != population.QuarantineNone {
		switch {
		case p.Status() == population.Recovered:
			p.SetQuarantine(population.QuarantineNone, day)
		case p.Status() == population.Susceptible && p.DaysSinceQuarantine(day) > m.cfg.QuarantineDuration:
			p.SetQuarantine(population.QuarantineNone, day)
		}
	}

	// tracing with delay zero already happened on symptom onset
	if m.cfg.Delay > 0 && p.HadStatus(population.ShowingSymptoms) {
		if since, ok := p.DaysSince(population.ShowingSymptoms, day); ok && since == m.cfg.Delay {
			m.performTracing(p, now-float64(m.cfg.Delay)*daySeconds, day, r)
		}
	}

	return nil
}

func (m *Machine) progress(p *population.Person, day int, r *rng.Rand) error {
	for {
		status := p.Status()
		if status == population.Susceptible {
			return nil
		}

		c := m.next[p.ID]
		if !c.valid {
			again, err := m.commitNext(p, status, r)
			if err != nil {
				return err
			}
			if !again {
				return nil
			}
			continue
		}

		since, _ := p.DaysSince(status, day)
		if since < int(c.day) {
			return nil
		}

		if err := p.SetStatus(day, c.status); err != nil {
			return err
		}
		m.next[p.ID] = committed{}
		m.reporter.ReportStatusChange(events.StatusChangeEvent{
			Day:    day,
			Time:   float64(day) * daySeconds,
			Person: p.ID,
			From:   status,
			To:     c.status,
		})
		m.onTransition(p, day, c.status, r)
	}
}

// commitNext draws the next status and its dwell time. It reports
// whether the dwell time is zero, in which case the transition fires on
// the same day.
func (m *Machine) commitNext(p *population.Person, from population.DiseaseStatus, r *rng.Rand) (bool, error) {
	next, err := m.decider.DecideNextState(r, p, m.day)
	if err != nil {
		return false, err
	}
	// immunity waning is optional; without the edge a recovered person
	// keeps the status forever
	if from == population.Recovered && !m.matrix.Has(from, next) {
		return false, nil
	}
	days, err := m.matrix.Sample(from, next, r)
	if err != nil {
		return false, err
	}
	m.next[p.ID] = committed{status: next, day: int32(days), valid: true}
	return days == 0, nil
}

func (m *Machine) onTransition(p *population.Person, day int, to population.DiseaseStatus, r *rng.Rand) {
	if to != population.ShowingSymptoms {
		return
	}
	p.SetQuarantine(population.QuarantineAtHome, day)
	if m.cfg.Delay == 0 {
		m.performTracing(p, float64(day)*daySeconds, day, r)
	}
}

// performTracing quarantines the recent contacts of an index person,
// within the remaining capacity budget of the day.
func (m *Machine) performTracing(p *population.Person, now float64, day int, r *rng.Rand) {
	if day < m.cfg.EnabledAfterDay || m.capacityLeft <= 0 {
		return
	}

	homeID := ""
	if m.cfg.QuarantineHousehold {
		homeID = p.HouseholdID
	}

	threshold := now - float64(m.cfg.Window)*daySeconds
	contacts := p.TraceableContacts(threshold)

	// guaranteed household tracing must not lose out to the budget
	if homeID != "" {
		sort.SliceStable(contacts, func(i, j int) bool {
			return m.arena.Get(contacts[i].Other).HouseholdID == homeID &&
				m.arena.Get(contacts[j].Other).HouseholdID != homeID
		})
	}

	for _, c := range contacts {
		if m.cfg.CapacityPerContact {
			if m.capacityLeft <= 0 {
				break
			}
			m.capacityLeft--
		}

		other := m.arena.Get(c.Other)
		switch {
		case homeID != "" && homeID == other.HouseholdID:
			// household members are always traced successfully
		case m.cfg.Probability == 1:
		case m.cfg.Probability == 0:
			continue
		case r.Float64() >= m.cfg.Probability:
			continue
		}
		m.quarantinePerson(other, day)
	}

	if !m.cfg.CapacityPerContact {
		m.capacityLeft--
	}
}

func (m *Machine) quarantinePerson(p *population.Person, day int) {
	if p.Quarantine() == population.QuarantineNone && p.Status() != population.Recovered {
		p.SetQuarantine(population.QuarantineAtHome, day)
	}
}

// PruneLedgers drops contact records that fell out of the tracing
// window of every person.
func (m *Machine) PruneLedgers(day int) {
	threshold := float64(day)*daySeconds - float64(m.cfg.Delay+m.cfg.Window+1)*daySeconds
	for _, p := range m.arena.All() {
		p.PruneContacts(threshold)
	}
}

// CanProgress reports whether any epidemic work remains: somebody is
// still infected or quarantined.
func CanProgress(rep *events.DayReport) bool {
	return rep.TotalInfected() > 0 || rep.InQuarantineFull+rep.InQuarantineHome > 0
}
