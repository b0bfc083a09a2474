package population

import "fmt"

// DiseaseStatus is the clinical state of a person. The zero value is
// Susceptible.
type DiseaseStatus uint8

const (
	Susceptible DiseaseStatus = iota
	InfectedButNotContagious
	Contagious
	ShowingSymptoms
	SeriouslySick
	Critical
	SeriouslySickAfterCritical
	Recovered

	numStatuses
)

// NumStatuses is the number of disease states, for table sizing.
const NumStatuses = int(numStatuses)

var statusNames = [...]string{
	Susceptible:                "susceptible",
	InfectedButNotContagious:   "infectedButNotContagious",
	Contagious:                 "contagious",
	ShowingSymptoms:            "showingSymptoms",
	SeriouslySick:              "seriouslySick",
	Critical:                   "critical",
	SeriouslySickAfterCritical: "seriouslySickAfterCritical",
	Recovered:                  "recovered",
}

// statusGraph lists the legal forward edges of the disease course.
// Recovered -> Susceptible is the waning edge; everything else moves
// strictly towards recovery.
var statusGraph = map[DiseaseStatus][]DiseaseStatus{
	Susceptible:                {InfectedButNotContagious},
	InfectedButNotContagious:   {Contagious},
	Contagious:                 {ShowingSymptoms, Recovered},
	ShowingSymptoms:            {SeriouslySick, Recovered},
	SeriouslySick:              {Critical, Recovered},
	Critical:                   {SeriouslySickAfterCritical},
	SeriouslySickAfterCritical: {Recovered},
	Recovered:                  {Susceptible},
}

// CanBecome reports whether next is a legal successor of s.
func (s DiseaseStatus) CanBecome(next DiseaseStatus) bool {
	for _, n := range statusGraph[s] {
		if n == next {
			return true
		}
	}
	return false
}

func (s DiseaseStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("diseaseStatus(%d)", uint8(s))
}

// ParseDiseaseStatus resolves a status by its canonical name.
func ParseDiseaseStatus(name string) (DiseaseStatus, error) {
	for i, n := range statusNames {
		if n == name {
			return DiseaseStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown disease status %q", name)
}

// QuarantineStatus is the quarantine axis, independent of disease state.
type QuarantineStatus uint8

const (
	QuarantineNone QuarantineStatus = iota
	QuarantineAtHome
	QuarantineFull
)

func (q QuarantineStatus) String() string {
	switch q {
	case QuarantineAtHome:
		return "atHome"
	case QuarantineFull:
		return "full"
	default:
		return "no"
	}
}
