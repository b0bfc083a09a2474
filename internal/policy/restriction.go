// Package policy holds the per-day restriction data supplied by the
// policy collaborator. The core only reads restrictions; they are
// refreshed once per simulated day before any container events.
package policy

import (
	"fmt"
	"math"
)

// NoLimit marks an unset group size limit.
const NoLimit = -1

// ClosingHours is a daily interval during which an activity's containers
// are closed, in seconds since midnight.
type ClosingHours struct {
	From float64
	To   float64
}

// Restriction is the policy for one activity type on one day.
type Restriction struct {
	// RemainingFraction is the share of activities still performed,
	// in [0, 1]. Suppression is probabilistic per person per activity.
	RemainingFraction float64

	// CiCorrection dampens contact intensity, e.g. distancing measures.
	CiCorrection float64

	// MaxGroupSize closes containers whose observed group size exceeds
	// it. NoLimit disables the check.
	MaxGroupSize int

	// ReducedGroupSize caps participation probabilistically so that the
	// expected group size matches it. NoLimit disables the check.
	ReducedGroupSize int

	// ClosingHours reduces joint contact time during the interval.
	ClosingHours *ClosingHours

	// ClosingHoursCompliance weights the closing-hours reduction; 1
	// means everyone respects the closure.
	ClosingHoursCompliance float64

	// RequireMask names the mandated face covering type, "" for none.
	RequireMask string

	// closed contains ids of individually closed containers.
	closed map[string]struct{}
}

// None returns a restriction that allows everything.
func None() *Restriction {
	return &Restriction{
		RemainingFraction:      1,
		CiCorrection:           1,
		MaxGroupSize:           NoLimit,
		ReducedGroupSize:       NoLimit,
		ClosingHoursCompliance: 1,
	}
}

// Of returns a restriction only limiting the remaining fraction.
func Of(remainingFraction float64) *Restriction {
	r := None()
	r.RemainingFraction = remainingFraction
	return r
}

// Validate checks value ranges. Restrictions come from an external
// collaborator, so broken values are configuration errors.
func (r *Restriction) Validate() error {
	if math.IsNaN(r.RemainingFraction) || r.RemainingFraction < 0 || r.RemainingFraction > 1 {
		return fmt.Errorf("remainingFraction must be in [0,1] but is %f", r.RemainingFraction)
	}
	if math.IsNaN(r.CiCorrection) || r.CiCorrection < 0 {
		return fmt.Errorf("ciCorrection must be >= 0 but is %f", r.CiCorrection)
	}
	if r.ClosingHoursCompliance < 0 || r.ClosingHoursCompliance > 1 {
		return fmt.Errorf("closingHoursCompliance must be in [0,1] but is %f", r.ClosingHoursCompliance)
	}
	if r.ClosingHours != nil && r.ClosingHours.To <= r.ClosingHours.From {
		return fmt.Errorf("closing hours interval [%f, %f] is empty", r.ClosingHours.From, r.ClosingHours.To)
	}
	return nil
}

// Close marks a single container as closed.
func (r *Restriction) Close(containerID string) {
	if r.closed == nil {
		r.closed = map[string]struct{}{}
	}
	r.closed[containerID] = struct{}{}
}

// IsClosed reports whether the given container is individually closed.
func (r *Restriction) IsClosed(containerID string) bool {
	_, ok := r.closed[containerID]
	return ok
}

// HasClosingHours reports whether a closing interval is set.
func (r *Restriction) HasClosingHours() bool {
	return r.ClosingHours != nil
}

// OverlapWithClosingHours returns the seconds of [enter, leave] falling
// into the closing interval, already weighted by compliance.
func (r *Restriction) OverlapWithClosingHours(enter, leave float64) float64 {
	if r.ClosingHours == nil || leave <= enter {
		return 0
	}
	const day = 24 * 3600
	var overlap float64
	// intervals repeat daily; span at most a few days
	for offset := math.Floor(enter/day) * day; offset < leave; offset += day {
		from := offset + r.ClosingHours.From
		to := offset + r.ClosingHours.To
		lo := math.Max(enter, from)
		hi := math.Min(leave, to)
		if hi > lo {
			overlap += hi - lo
		}
	}
	return overlap * r.ClosingHoursCompliance
}

// Restrictions maps activity type names to the day's restriction.
type Restrictions map[string]*Restriction

// Get returns the restriction for an activity type, falling back to an
// unrestricted default so that unknown activities never panic the hot
// path.
func (rs Restrictions) Get(activity string) *Restriction {
	if r, ok := rs[activity]; ok {
		return r
	}
	return unrestricted
}

var unrestricted = None()
