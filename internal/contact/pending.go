package contact

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sgrunder/contagion/internal/population"
)

// ErrInfectorNotContagious is returned when a pending infection names
// an infector that is no longer able to transmit at confirm time. The
// infector's status cannot legally change during a day, so this is a
// fatal consistency violation.
var ErrInfectorNotContagious = errors.New("pending infection from non-contagious infector")

// ErrQuarantinedParty is returned when either party of a pending
// infection sits in full quarantine at confirm time. Fully quarantined
// persons never pass the relevance filter, so the draw could not have
// happened legally.
var ErrQuarantinedParty = errors.New("pending infection involves fully quarantined person")

// PendingInfection is a provisionally drawn infection awaiting the
// sequential confirm phase. Container tasks never mutate the target
// directly; a target hit from several containers on the same day is
// infected exactly once.
type PendingInfection struct {
	Day      int
	Time     float64
	Target   population.ID
	Infector population.ID

	ContainerID   string
	InfectionType string
	Strain        string
	Probability   float64
}

// Revalidate re-checks the preconditions of the draw before it is
// committed. ok is false when the target is no longer susceptible,
// which means an earlier commit of the same day won the race and this
// draw is silently dropped. Any other violated precondition is a fatal
// error.
func (pi *PendingInfection) Revalidate(target, infector *population.Person) (bool, error) {
	if target.Status() != population.Susceptible {
		return false, nil
	}
	if s := infector.Status(); s != population.Contagious && s != population.ShowingSymptoms {
		return false, fmt.Errorf("%w: infector %d has status %s", ErrInfectorNotContagious, infector.ID, s)
	}
	if target.Quarantine() == population.QuarantineFull {
		return false, fmt.Errorf("%w: target %d", ErrQuarantinedParty, target.ID)
	}
	if infector.Quarantine() == population.QuarantineFull {
		return false, fmt.Errorf("%w: infector %d", ErrQuarantinedParty, infector.ID)
	}
	return true, nil
}

// Queue collects pending infections from parallel container tasks. It
// is the single cross-task interaction point of a simulated day.
type Queue struct {
	mu      sync.Mutex
	pending []PendingInfection
}

// Add appends a pending infection. Safe for concurrent use.
func (q *Queue) Add(pi PendingInfection) {
	q.mu.Lock()
	q.pending = append(q.pending, pi)
	q.mu.Unlock()
}

// Drain returns and clears all collected infections. Only called from
// the sequential confirm phase, after all container tasks finished.
func (q *Queue) Drain() []PendingInfection {
	q.mu.Lock()
	out := q.pending
	q.pending = nil
	q.mu.Unlock()
	return out
}

// Len returns the number of collected infections.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
