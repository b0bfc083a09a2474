// Package replay supplies the pre-computed mobility trace: who is in
// which container, when, doing what. The engine consumes it purely as
// timestamp-ordered enter/leave notifications.
package replay

import (
	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/population"
)

// EventKind distinguishes the two notification types.
type EventKind uint8

const (
	// Enter notifies that a person entered a container.
	Enter EventKind = iota
	// Leave notifies that a person is about to leave a container;
	// contact sampling runs while the person is still inside.
	Leave
)

// Event is one replay notification. Time is seconds since midnight of
// the simulated day.
type Event struct {
	Time        float64
	Kind        EventKind
	Person      population.ID
	ContainerID string

	// Activity is the performed activity in a facility, "pt" in a
	// vehicle.
	Activity string

	// PrevActivity and NextActivity frame a vehicle trip; unused for
	// facilities.
	PrevActivity string
	NextActivity string
}

// Source provides the mobility trace for the whole run.
type Source interface {
	// Arena returns the simulated population.
	Arena() *population.Arena

	// Containers returns all containers in a stable order.
	Containers() []*container.Container

	// Container resolves a container id.
	Container(id string) *container.Container

	// DayEvents returns the day's notifications in timestamp order.
	// Day counting starts at 1.
	DayEvents(day int) []Event
}
