package contact

import (
	"math"

	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
)

// Sqrt samples contacts so that the expected number of interactions per
// stay grows with the square root of the group size instead of
// linearly, damping superspreading in very large containers.
type Sqrt struct {
	*Engine
}

func (s *Sqrt) OnEnter(*Context, *population.Person, *container.Container, float64) {}

func (s *Sqrt) OnLeave(ctx *Context, leaving *population.Person, c *container.Container, now float64) error {
	if ctx.Day == 0 || c.Size() <= 1 {
		return nil
	}
	if !s.relevant(ctx, leaving, c) {
		return nil
	}

	tracking := ctx.Day >= s.trackingAfterDay

	candidates := float64(c.Size() - 1)
	contactProb := math.Min(1, s.targetContactRate/math.Sqrt(candidates))

	for _, otherID := range c.Occupants() {
		if otherID == leaving.ID {
			continue
		}

		if contactProb < 1 && ctx.Rng.Float64() >= contactProb {
			continue
		}

		other := s.arena.Get(otherID)
		if !s.relevant(ctx, other, c) {
			continue
		}

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
