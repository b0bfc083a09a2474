// Package container models facilities and vehicles: transient bags of
// co-present persons. Containers are owned by the replay collaborator;
// the core only reads them between notifications.
package container

import "github.com/sgrunder/contagion/internal/population"

// Kind distinguishes the two container variants.
type Kind uint8

const (
	// Facility is a fixed location (home, workplace, school, shop...).
	Facility Kind = iota
	// Vehicle is a public transit vehicle.
	Vehicle
)

type presence struct {
	enterTime float64
	activity  string

	// surrounding facility activities of a vehicle trip
	prevActivity string
	nextActivity string
}

// Container holds the currently co-present persons, the time each of
// them entered and the activity they perform here. A person appears in
// at most one container at a time.
type Container struct {
	id              string
	kind            Kind
	typicalCapacity int
	spaces          float64

	maxGroupSize int

	present map[population.ID]presence
	// order keeps insertion order for deterministic iteration
	order []population.ID
}

// New creates an empty container. typicalCapacity is the configured
// maximum occupancy (vehicles: seats); pass 0 if unknown. spaces is the
// number of distinct rooms of a facility, at least 1.
func New(id string, kind Kind, typicalCapacity int, spaces float64) *Container {
	if spaces < 1 {
		spaces = 1
	}
	return &Container{
		id:              id,
		kind:            kind,
		typicalCapacity: typicalCapacity,
		spaces:          spaces,
		present:         map[population.ID]presence{},
	}
}

// ID returns the container identifier.
func (c *Container) ID() string { return c.id }

// Kind returns whether this is a facility or a vehicle.
func (c *Container) Kind() Kind { return c.kind }

// TypicalCapacity returns the configured maximum occupancy, 0 if unknown.
func (c *Container) TypicalCapacity() int { return c.typicalCapacity }

// Spaces returns the number of distinct spaces of the facility.
func (c *Container) Spaces() float64 { return c.spaces }

// MaxGroupSize returns the largest simultaneous occupancy observed so
// far this run.
func (c *Container) MaxGroupSize() int { return c.maxGroupSize }

// Enter records a person entering at the given time for an activity.
func (c *Container) Enter(id population.ID, now float64, activity string) {
	if _, ok := c.present[id]; ok {
		return
	}
	c.present[id] = presence{enterTime: now, activity: activity}
	c.order = append(c.order, id)
	if len(c.present) > c.maxGroupSize {
		c.maxGroupSize = len(c.present)
	}
}

// EnterTrip records a person boarding a vehicle, remembering the
// facility activities before and after the trip for relevance checks.
func (c *Container) EnterTrip(id population.ID, now float64, prevActivity, nextActivity string) {
	if _, ok := c.present[id]; ok {
		return
	}
	c.present[id] = presence{enterTime: now, activity: "pt", prevActivity: prevActivity, nextActivity: nextActivity}
	c.order = append(c.order, id)
	if len(c.present) > c.maxGroupSize {
		c.maxGroupSize = len(c.present)
	}
}

// TripActivities returns the facility activities surrounding a
// passenger's trip. prev is empty at the start of a day plan.
func (c *Container) TripActivities(id population.ID) (prev, next string) {
	p := c.present[id]
	return p.prevActivity, p.nextActivity
}

// Leave removes a person from the container.
func (c *Container) Leave(id population.ID) {
	if _, ok := c.present[id]; !ok {
		return
	}
	delete(c.present, id)
	for i, pid := range c.order {
		if pid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Occupants returns the present persons in entry order.
func (c *Container) Occupants() []population.ID { return c.order }

// Size returns the current occupancy.
func (c *Container) Size() int { return len(c.present) }

// Contains reports whether the person is currently present.
func (c *Container) Contains(id population.ID) bool {
	_, ok := c.present[id]
	return ok
}

// EnteredAt returns the time the person entered; ok is false if the
// person is not present.
func (c *Container) EnteredAt(id population.ID) (float64, bool) {
	p, ok := c.present[id]
	return p.enterTime, ok
}

// PerformedActivity returns the activity the person performs here.
func (c *Container) PerformedActivity(id population.ID) string {
	return c.present[id].activity
}

// Clear removes all occupants, e.g. at the end of a day.
func (c *Container) Clear() {
	clear(c.present)
	c.order = c.order[:0]
}
