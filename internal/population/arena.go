package population

// Arena owns every person of the simulation, indexed by dense ID.
// Persons are created once at simulation start and never destroyed.
type Arena struct {
	persons []*Person
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add creates a person with the next free ID and returns it.
func (a *Arena) Add(age int, householdID string, trajectory []Activity) *Person {
	p := NewPerson(ID(len(a.persons)), age, householdID, trajectory)
	a.persons = append(a.persons, p)
	return p
}

// Get returns the person with the given ID, or nil if out of range.
func (a *Arena) Get(id ID) *Person {
	if id < 0 || int(id) >= len(a.persons) {
		return nil
	}
	return a.persons[id]
}

// All returns every person in ID order.
func (a *Arena) All() []*Person { return a.persons }

// Len returns the population size.
func (a *Arena) Len() int { return len(a.persons) }
