package population

import (
	"errors"
	"fmt"
)

// ErrStatusRegression is returned when a disease status change would move
// backwards along the state graph. It indicates corrupted simulation state
// and is never recoverable.
var ErrStatusRegression = errors.New("disease status regression")

// ID is a dense arena index identifying a person. Cross references between
// persons (infector, traceable contacts) are always IDs, never pointers,
// so container tasks can run in parallel without aliasing hazards.
type ID int32

// Activity is one entry of a person's fixed weekly trajectory.
type Activity struct {
	// Type is the activity type name, e.g. "home", "work", "edu_school".
	Type string
}

// Infection records one (re-)infection.
type Infection struct {
	Strain string
	Day    int
}

// Vaccination records one administered dose.
type Vaccination struct {
	Type string
	Day  int
}

// ContactRecord is a traceable contact: the other person and the last
// time the two were together. Records are pruned on a rolling window.
type ContactRecord struct {
	Other       ID
	LastContact float64
}

// Person is one simulated agent. All mutable state is owned by the day
// loop; during parallel container evaluation only the deferred infection
// queue may touch a person outside its own container task.
type Person struct {
	ID          ID
	Age         int
	HouseholdID string

	status    DiseaseStatus
	statusDay [NumStatuses]int32 // first day each status was reached, -1 if never

	quarantine    QuarantineStatus
	quarantineDay int

	infections   []Infection
	vaccinations []Vaccination

	// antibodies holds the current neutralizing titer per strain.
	antibodies map[string]float64

	// immuneResponse scales antibody gains, drawn once per person.
	immuneResponse float64

	trajectory    []Activity
	trajectoryPos int

	contacts []ContactRecord

	infectionContainer string
	infectionType      string
}

// NewPerson creates a susceptible person with an empty history.
func NewPerson(id ID, age int, householdID string, trajectory []Activity) *Person {
	p := &Person{
		ID:             id,
		Age:            age,
		HouseholdID:    householdID,
		trajectory:     trajectory,
		antibodies:     map[string]float64{},
		immuneResponse: 1,
	}
	for i := range p.statusDay {
		p.statusDay[i] = -1
	}
	p.statusDay[Susceptible] = 0
	return p
}

// Status returns the current disease status.
func (p *Person) Status() DiseaseStatus { return p.status }

// SetStatus moves the person to a new disease status on the given day.
// Only the forward edges of the disease course are legal; re-entering a
// status happens only across episodes (waning and re-infection). The
// entry day always reflects the latest episode so that DaysSince is
// anchored to the current course of disease.
func (p *Person) SetStatus(day int, status DiseaseStatus) error {
	if !p.status.CanBecome(status) {
		return fmt.Errorf("%w: person %d cannot move from %s to %s", ErrStatusRegression, p.ID, p.status, status)
	}
	p.status = status
	p.statusDay[status] = int32(day)
	return nil
}

// HadStatus reports whether the person ever reached the given status.
func (p *Person) HadStatus(status DiseaseStatus) bool {
	return p.statusDay[status] >= 0
}

// DaysSince returns the days elapsed since the status was first reached.
// The second return is false when the status was never reached.
func (p *Person) DaysSince(status DiseaseStatus, day int) (int, bool) {
	d := p.statusDay[status]
	if d < 0 {
		return 0, false
	}
	return day - int(d), true
}

// Quarantine returns the current quarantine status.
func (p *Person) Quarantine() QuarantineStatus { return p.quarantine }

// SetQuarantine changes the quarantine status, remembering the day it
// was entered.
func (p *Person) SetQuarantine(status QuarantineStatus, day int) {
	p.quarantine = status
	p.quarantineDay = day
}

// DaysSinceQuarantine returns the days since quarantine was entered.
func (p *Person) DaysSinceQuarantine(day int) int {
	return day - p.quarantineDay
}

// RecordInfection appends an infection to the history. The strain becomes
// the person's current strain.
func (p *Person) RecordInfection(strain string, day int) {
	p.infections = append(p.infections, Infection{Strain: strain, Day: day})
}

// Strain returns the strain of the most recent infection, or "" if the
// person was never infected.
func (p *Person) Strain() string {
	if len(p.infections) == 0 {
		return ""
	}
	return p.infections[len(p.infections)-1].Strain
}

// NumInfections returns how often the person has been infected.
func (p *Person) NumInfections() int { return len(p.infections) }

// DaysSinceInfection returns the days since infection idx occurred.
func (p *Person) DaysSinceInfection(idx, day int) int {
	return day - p.infections[idx].Day
}

// InfectionOnDay reports whether any infection occurred on the given day.
func (p *Person) InfectionOnDay(day int) (string, bool) {
	for _, inf := range p.infections {
		if inf.Day == day {
			return inf.Strain, true
		}
	}
	return "", false
}

// RecordVaccination appends a dose to the vaccination history.
func (p *Person) RecordVaccination(vaccinationType string, day int) {
	p.vaccinations = append(p.vaccinations, Vaccination{Type: vaccinationType, Day: day})
}

// NumVaccinations returns the number of administered doses.
func (p *Person) NumVaccinations() int { return len(p.vaccinations) }

// VaccinationOnDay reports whether a dose was administered on the given
// day, and its type.
func (p *Person) VaccinationOnDay(day int) (string, bool) {
	for _, v := range p.vaccinations {
		if v.Day == day {
			return v.Type, true
		}
	}
	return "", false
}

// Antibodies returns the current titer against a strain.
func (p *Person) Antibodies(strain string) float64 {
	return p.antibodies[strain]
}

// SetAntibodies sets the titer against a strain. Negative titers indicate
// a broken model and panic immediately.
func (p *Person) SetAntibodies(strain string, titer float64) {
	if titer < 0 {
		panic(fmt.Sprintf("negative antibody titer %f for person %d", titer, p.ID))
	}
	p.antibodies[strain] = titer
}

// HasAntibodies reports whether any titer is above zero, i.e. whether the
// person was ever immunized.
func (p *Person) HasAntibodies() bool {
	for _, t := range p.antibodies {
		if t > 0 {
			return true
		}
	}
	return false
}

// ImmuneResponse returns the person's antibody gain multiplier.
func (p *Person) ImmuneResponse() float64 { return p.immuneResponse }

// SetImmuneResponse sets the antibody gain multiplier.
func (p *Person) SetImmuneResponse(m float64) { p.immuneResponse = m }

// Trajectory returns the fixed weekly activity sequence.
func (p *Person) Trajectory() []Activity { return p.trajectory }

// CurrentActivity returns the trajectory entry at the cursor.
func (p *Person) CurrentActivity() Activity {
	if len(p.trajectory) == 0 {
		return Activity{Type: "home"}
	}
	return p.trajectory[p.trajectoryPos%len(p.trajectory)]
}

// PreviousActivity returns the trajectory entry before the cursor; ok
// is false at the start of the week.
func (p *Person) PreviousActivity() (Activity, bool) {
	if len(p.trajectory) == 0 || p.trajectoryPos == 0 {
		return Activity{}, false
	}
	return p.trajectory[p.trajectoryPos-1], true
}

// AdvanceTrajectory moves the cursor to the next scheduled activity.
func (p *Person) AdvanceTrajectory() {
	if len(p.trajectory) > 0 {
		p.trajectoryPos = (p.trajectoryPos + 1) % len(p.trajectory)
	}
}

// ResetTrajectory rewinds the cursor to the start of the week.
func (p *Person) ResetTrajectory() { p.trajectoryPos = 0 }

// AddTraceableContact records that the person met other at the given
// time. An existing record for the same person is refreshed instead of
// duplicated.
func (p *Person) AddTraceableContact(other ID, now float64) {
	for i := range p.contacts {
		if p.contacts[i].Other == other {
			p.contacts[i].LastContact = now
			return
		}
	}
	p.contacts = append(p.contacts, ContactRecord{Other: other, LastContact: now})
}

// TraceableContacts returns the contacts met at or after the threshold.
func (p *Person) TraceableContacts(after float64) []ContactRecord {
	var out []ContactRecord
	for _, c := range p.contacts {
		if c.LastContact >= after {
			out = append(out, c)
		}
	}
	return out
}

// PruneContacts drops contacts last seen before the threshold.
func (p *Person) PruneContacts(before float64) {
	kept := p.contacts[:0]
	for _, c := range p.contacts {
		if c.LastContact >= before {
			kept = append(kept, c)
		}
	}
	p.contacts = kept
}

// SetInfectionPlace records where and during which interaction type the
// person got infected.
func (p *Person) SetInfectionPlace(containerID, infectionType string) {
	p.infectionContainer = containerID
	p.infectionType = infectionType
}

// InfectionContainer returns the container the person was infected in.
func (p *Person) InfectionContainer() string { return p.infectionContainer }

// InfectionType returns the interaction type of the infection.
func (p *Person) InfectionType() string { return p.infectionType }
