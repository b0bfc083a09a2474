// Package events defines the append-only events the engine exposes to
// reporting and persistence collaborators. One event is emitted per
// occurrence and never retracted.
package events

import "github.com/sgrunder/contagion/internal/population"

// InfectionEvent is emitted when a deferred infection is confirmed.
type InfectionEvent struct {
	Day           int
	Time          float64
	Target        population.ID
	Infector      population.ID
	ContainerID   string
	InfectionType string
	Strain        string
	Probability   float64
}

// ContactEvent is emitted for every registered raw contact, independent
// of whether infection logic proceeded.
type ContactEvent struct {
	Day           int
	Time          float64
	PersonA       population.ID
	PersonB       population.ID
	ContainerID   string
	InfectionType string
	Duration      float64
}

// StatusChangeEvent is emitted on every disease status transition.
type StatusChangeEvent struct {
	Day    int
	Time   float64
	Person population.ID
	From   population.DiseaseStatus
	To     population.DiseaseStatus
}

// VaccinationEvent is emitted for every administered dose.
type VaccinationEvent struct {
	Day    int
	Person population.ID
	Type   string
	Dose   int
}

// Reporter consumes engine events. Implementations must tolerate being
// called from the sequential commit and day-boundary phases only; the
// engine never reports from parallel container tasks except for raw
// contacts, which are funneled through the per-task buffers first.
type Reporter interface {
	ReportInfection(ev InfectionEvent)
	ReportContact(ev ContactEvent)
	ReportStatusChange(ev StatusChangeEvent)
	ReportVaccination(ev VaccinationEvent)
}

// Discard is a Reporter that drops everything.
type Discard struct{}

func (Discard) ReportInfection(InfectionEvent)       {}
func (Discard) ReportContact(ContactEvent)           {}
func (Discard) ReportStatusChange(StatusChangeEvent) {}
func (Discard) ReportVaccination(VaccinationEvent)   {}

// Recorder keeps all events in memory, in emission order.
type Recorder struct {
	Infections    []InfectionEvent
	Contacts      []ContactEvent
	StatusChanges []StatusChangeEvent
	Vaccinations  []VaccinationEvent
}

func (r *Recorder) ReportInfection(ev InfectionEvent) { r.Infections = append(r.Infections, ev) }
func (r *Recorder) ReportContact(ev ContactEvent)     { r.Contacts = append(r.Contacts, ev) }
func (r *Recorder) ReportStatusChange(ev StatusChangeEvent) {
	r.StatusChanges = append(r.StatusChanges, ev)
}
func (r *Recorder) ReportVaccination(ev VaccinationEvent) {
	r.Vaccinations = append(r.Vaccinations, ev)
}

// Tee duplicates events to several reporters.
type Tee []Reporter

func (t Tee) ReportInfection(ev InfectionEvent) {
	for _, r := range t {
		r.ReportInfection(ev)
	}
}

func (t Tee) ReportContact(ev ContactEvent) {
	for _, r := range t {
		r.ReportContact(ev)
	}
}

func (t Tee) ReportStatusChange(ev StatusChangeEvent) {
	for _, r := range t {
		r.ReportStatusChange(ev)
	}
}

func (t Tee) ReportVaccination(ev VaccinationEvent) {
	for _, r := range t {
		r.ReportVaccination(ev)
	}
}
