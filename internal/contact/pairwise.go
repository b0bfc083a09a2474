package contact

import (
	"sync"

	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/scenario"
)

type pairing struct {
	// waiting is the unpartnered relevant occupant, -1 if none.
	waiting population.ID

	partner map[population.ID]population.ID
	since   map[population.ID]float64
}

func newPairing() *pairing {
	return &pairing{waiting: -1, partner: map[population.ID]population.ID{}, since: map[population.ID]float64{}}
}

// Pairwise lets occupants interact only in exclusive pairs: an entering
// person partners with the first unpartnered occupant and stays with
// them until either one leaves, at which point the interaction of that
// single pair is evaluated.
type Pairwise struct {
	*Engine

	mu       sync.Mutex
	partners map[string]*pairing
}

func (s *Pairwise) state(c *container.Container) *pairing {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.partners[c.ID()]
	if !ok {
		st = newPairing()
		s.partners[c.ID()] = st
	}
	return st
}

func (s *Pairwise) OnEnter(ctx *Context, p *population.Person, c *container.Container, now float64) {
	if ctx.Day == 0 || !s.relevant(ctx, p, c) {
		return
	}
	st := s.state(c)
	if st.waiting < 0 {
		st.waiting = p.ID
		return
	}
	other := st.waiting
	st.waiting = -1
	st.partner[p.ID] = other
	st.partner[other] = p.ID
	st.since[p.ID] = now
	st.since[other] = now
}

func (s *Pairwise) OnLeave(ctx *Context, leaving *population.Person, c *container.Container, now float64) error {
	st := s.state(c)

	if st.waiting == leaving.ID {
		st.waiting = -1
		return nil
	}

	otherID, ok := st.partner[leaving.ID]
	if !ok {
		return nil
	}
	since := st.since[leaving.ID]
	delete(st.partner, leaving.ID)
	delete(st.partner, otherID)
	delete(st.since, leaving.ID)
	delete(st.since, otherID)

	// the abandoned partner is available again
	if st.waiting < 0 && c.Contains(otherID) {
		st.waiting = otherID
	}

	other := s.arena.Get(otherID)
	tracking := ctx.Day >= s.trackingAfterDay

	if !tracking {
		if leaving.Status() == population.InfectedButNotContagious ||
			other.Status() == population.InfectedButNotContagious {
			return nil
		}
		if leaving.Status() == other.Status() {
			return nil
		}
	} else if !s.traceSusceptible &&
		leaving.Status() == population.Susceptible && other.Status() == population.Susceptible {
		return nil
	}

	leavingParams := s.performedParams(c, leaving)
	otherParams := s.performedParams(c, other)
	leavingActivity := activityName(leavingParams)
	otherActivity := activityName(otherParams)
	infType := infectionType(c, leavingActivity, otherActivity)

	jointTime := s.pairJointTime(ctx, since, now, leavingParams)

	if c.Kind() == container.Facility {
		if !allowedInteraction(infType, leavingActivity, otherActivity) {
			return nil
		}
		if tracking {
			s.track(ctx, leaving, other, now, jointTime, infType)
		}
		ctx.Contacts = append(ctx.Contacts, events.ContactEvent{
			Day:           ctx.Day,
			Time:          now,
			PersonA:       leaving.ID,
			PersonB:       other.ID,
			ContainerID:   c.ID(),
			InfectionType: infType,
			Duration:      jointTime,
		})
	}

	return s.evaluatePair(ctx, leaving, other, c, now, jointTime, leavingParams, otherParams, infType)
}

// pairJointTime measures from pairing, not container entry, and applies
// the closing-hours reduction of the leaver's activity.
func (s *Pairwise) pairJointTime(ctx *Context, since, now float64, params *scenario.ActivityParams) float64 {
	r := ctx.Restrictions.Get(params.Name)
	if !r.HasClosingHours() {
		return now - since
	}
	overlap := r.OverlapWithClosingHours(since, now)
	if overlap > 0 {
		if jt := now - since - overlap; jt > 0 {
			return jt
		}
		return 0
	}
	return now - since
}

// Reset clears all pairing state, e.g. at the end of a day.
func (s *Pairwise) Reset() {
	s.mu.Lock()
	s.partners = map[string]*pairing{}
	s.mu.Unlock()
}
