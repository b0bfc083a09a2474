package replay

import (
	"fmt"
	"sort"

	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

// Synthetic is a generated mobility trace: households, workplaces,
// schools, leisure facilities and transit vehicles with a fixed daily
// rhythm. It stands in for an external trace file and is deterministic
// under a fixed seed.
type Synthetic struct {
	arena      *population.Arena
	containers []*container.Container
	byID       map[string]*container.Container

	events []Event
}

// BuildSynthetic generates population and trace from the scenario's
// population block. All randomness comes from the given stream.
func BuildSynthetic(cfg *scenario.Scenario, r *rng.Rand) (*Synthetic, error) {
	pc := cfg.Population
	if pc.Size <= 0 {
		return nil, fmt.Errorf("population size must be > 0 but is %d", pc.Size)
	}
	household := pc.MeanHouseholdSize
	if household <= 0 {
		household = 3
	}

	s := &Synthetic{
		arena: population.NewArena(),
		byID:  map[string]*container.Container{},
	}

	numWork := max(1, pc.Size/20)
	numEdu := max(1, pc.Size/50)
	numLeisure := max(1, pc.Size/50)
	numVehicles := max(1, pc.Size/100)

	for i := 0; i < pc.Size; i++ {
		homeID := fmt.Sprintf("home_%d", i/household)
		age := 1 + r.IntN(90)

		dayActivity := ""
		dayFacility := ""
		switch {
		case age < 20 && r.Float64() < 0.9*min(1.0, pc.EduFraction*5):
			dayActivity = "edu"
			dayFacility = fmt.Sprintf("edu_%d", r.IntN(numEdu))
		case age >= 20 && age < 67 && r.Float64() < pc.WorkFraction:
			dayActivity = "work"
			dayFacility = fmt.Sprintf("work_%d", r.IntN(numWork))
		}

		leisureFacility := ""
		if r.Float64() < 0.5 {
			leisureFacility = fmt.Sprintf("leis_%d", r.IntN(numLeisure))
		}

		trajectory := []population.Activity{{Type: "home"}}
		if dayActivity != "" {
			trajectory = append(trajectory, population.Activity{Type: dayActivity})
		}
		if leisureFacility != "" {
			trajectory = append(trajectory, population.Activity{Type: "leisure"})
		}
		trajectory = append(trajectory, population.Activity{Type: "home"})

		p := s.arena.Add(age, homeID, trajectory)

		vehicle := ""
		if r.Float64() < pc.PtFraction {
			vehicle = fmt.Sprintf("pt_%d", r.IntN(numVehicles))
		}

		s.planDay(p.ID, homeID, dayFacility, dayActivity, leisureFacility, vehicle, r)
	}

	sort.SliceStable(s.events, func(i, j int) bool {
		a, b := s.events[i], s.events[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		// leaves before enters at identical times keeps movements causal
		if a.Kind != b.Kind {
			return a.Kind == Leave
		}
		return a.Person < b.Person
	})

	return s, nil
}

// facility returns or creates a container by id.
func (s *Synthetic) facility(id string, kind container.Kind, capacity int, spaces float64) *container.Container {
	if c, ok := s.byID[id]; ok {
		return c
	}
	c := container.New(id, kind, capacity, spaces)
	s.byID[id] = c
	s.containers = append(s.containers, c)
	return c
}

// planDay emits the person's daily event sequence: home, optionally a
// work or school block, optionally leisure, and home again, with
// transit trips in between when the person rides public transport.
func (s *Synthetic) planDay(id population.ID, homeID, dayFacility, dayActivity, leisureFacility, vehicle string, r *rng.Rand) {
	const hour = 3600.0

	s.facility(homeID, container.Facility, 0, 1)

	location := homeID
	activity := "home"
	s.addEnter(0, id, homeID, "home")

	move := func(t float64, dest, destActivity string, spaces float64) float64 {
		s.addLeave(t, id, location, activity)
		if vehicle != "" {
			s.facility(vehicle, container.Vehicle, 50, 1)
			arrive := t + 0.2*hour + 0.3*hour*r.Float64()
			s.events = append(s.events,
				Event{Time: t, Kind: Enter, Person: id, ContainerID: vehicle, Activity: "pt", PrevActivity: activity, NextActivity: destActivity},
				Event{Time: arrive, Kind: Leave, Person: id, ContainerID: vehicle, Activity: "pt", PrevActivity: activity, NextActivity: destActivity},
			)
			t = arrive
		}
		s.facility(dest, container.Facility, 0, spaces)
		s.addEnter(t, id, dest, destActivity)
		location = dest
		activity = destActivity
		return t
	}

	switch {
	case dayFacility != "":
		move(7*hour+hour*r.Float64(), dayFacility, dayActivity, 20)
		end := 15.5*hour + 1.5*hour*r.Float64()
		if leisureFacility != "" {
			end = move(end, leisureFacility, "leisure", 20)
			move(end+1.5*hour+hour*r.Float64(), homeID, "home", 1)
		} else {
			move(end, homeID, "home", 1)
		}
	case leisureFacility != "":
		end := move(13*hour+3*hour*r.Float64(), leisureFacility, "leisure", 20)
		move(end+2*hour+2*hour*r.Float64(), homeID, "home", 1)
	}

	// end of day closes the household round
	s.addLeave(24*hour, id, homeID, "home")
}

func (s *Synthetic) addEnter(t float64, id population.ID, containerID, activity string) {
	s.events = append(s.events, Event{Time: t, Kind: Enter, Person: id, ContainerID: containerID, Activity: activity})
}

func (s *Synthetic) addLeave(t float64, id population.ID, containerID, activity string) {
	s.events = append(s.events, Event{Time: t, Kind: Leave, Person: id, ContainerID: containerID, Activity: activity})
}

// Arena returns the generated population.
func (s *Synthetic) Arena() *population.Arena { return s.arena }

// Containers returns all generated containers in creation order.
func (s *Synthetic) Containers() []*container.Container { return s.containers }

// Container resolves a container id, nil if unknown.
func (s *Synthetic) Container(id string) *container.Container { return s.byID[id] }

// DayEvents returns the fixed daily schedule; every day repeats the
// same rhythm.
func (s *Synthetic) DayEvents(int) []Event { return s.events }
