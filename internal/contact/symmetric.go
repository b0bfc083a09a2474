package contact

import (
	"math"

	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
)

// Symmetric evaluates the leaver against every remaining occupant. Each
// candidate is sampled with min(targetContactRate, 1) divided by the
// container's effective capacity, keeping the expected interactions per
// stay bounded regardless of container size, plus a per-pair
// co-location draw over the facility's spaces. Both directions of a
// pair are handled in one pass, so every pair interacts at most once
// per shared stay.
type Symmetric struct {
	*Engine
}

func (s *Symmetric) OnEnter(*Context, *population.Person, *container.Container, float64) {}

func (s *Symmetric) OnLeave(ctx *Context, leaving *population.Person, c *container.Container, now float64) error {
	if ctx.Day == 0 || c.Size() <= 1 {
		return nil
	}
	if !s.relevant(ctx, leaving, c) {
		return nil
	}

	tracking := ctx.Day >= s.trackingAfterDay

	contactProb := 1.0
	if maxPersons := s.effectiveCapacity(c); maxPersons > 1 {
		contactProb = math.Min(s.targetContactRate, 1) / float64(maxPersons-1)
	}

	for _, otherID := range c.Occupants() {
		if otherID == leaving.ID {
			continue
		}
		if contactProb < 1 && ctx.Rng.Float64() >= contactProb {
			continue
		}
		other := s.arena.Get(otherID)

		// the other person may be in a different space of the facility
		if spaces := c.Spaces(); spaces > 1 && ctx.Rng.Float64() > 1/spaces {
			continue
		}

		if !s.relevant(ctx, other, c) {
			continue
		}

		// draws are spent; cheap bail-outs only allowed from here on
		if !tracking {
			if leaving.Status() == population.InfectedButNotContagious ||
				other.Status() == population.InfectedButNotContagious {
				continue
			}
			if leaving.Status() == other.Status() {
				continue
			}
		} else if !s.traceSusceptible &&
			leaving.Status() == population.Susceptible && other.Status() == population.Susceptible {
			continue
		}

		leavingParams := s.performedParams(c, leaving)
		otherParams := s.performedParams(c, other)
		leavingActivity := activityName(leavingParams)
		otherActivity := activityName(otherParams)
		infType := infectionType(c, leavingActivity, otherActivity)

		jointTime := s.jointTime(ctx, now, leavingParams, c, leaving.ID, other.ID)

		if c.Kind() == container.Facility {
			if !allowedInteraction(infType, leavingActivity, otherActivity) {
				continue
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

		if err := s.evaluatePair(ctx, leaving, other, c, now, jointTime, leavingParams, otherParams, infType); err != nil {
			return err
		}
	}
	return nil
}
