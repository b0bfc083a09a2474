// Package contact samples which co-present persons interact when one
// of them leaves a container, and turns interactions into pending
// infections via the infection model. Strategies are swappable; all of
// them share the relevance filtering and joint-time bookkeeping here.
package contact

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/infection"
	"github.com/sgrunder/contagion/internal/policy"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
)

const daySeconds = 24 * 3600

// ErrImplausibleJointTime is returned when two persons' computed joint
// time is negative or exceeds 18 days; both indicate corrupted replay
// input and abort the run.
var ErrImplausibleJointTime = errors.New("implausible joint time in container")

// TrackedContact is a buffered tracing-ledger entry. Ledger writes are
// deferred to the sequential phase so that container tasks never mutate
// a person owned by another shard.
type TrackedContact struct {
	A, B population.ID
	Time float64
}

// Context carries the per-task state of one day shard. Contacts and
// ledger entries are buffered here and flushed by the caller after the
// day barrier, so reporters and persons never see concurrent writes.
type Context struct {
	Day          int
	Rng          *rng.Rand
	Restrictions policy.Restrictions

	Contacts []events.ContactEvent
	Tracked  []TrackedContact
}

// Strategy decides which occupants interact. OnEnter is only meaningful
// for stateful strategies; the leaver must still be inside the
// container when OnLeave runs.
type Strategy interface {
	OnEnter(ctx *Context, p *population.Person, c *container.Container, now float64)
	OnLeave(ctx *Context, p *population.Person, c *container.Container, now float64) error
}

// NewStrategy builds the configured sampling strategy.
func NewStrategy(name string, e *Engine) (Strategy, error) {
	switch name {
	case "symmetric":
		return &Symmetric{Engine: e}, nil
	case "pairwise":
		return &Pairwise{Engine: e, partners: map[string]*pairing{}}, nil
	case "sqrt":
		return &Sqrt{Engine: e}, nil
	default:
		return nil, fmt.Errorf("unknown contact strategy %q", name)
	}
}

// Engine bundles the collaborators and parameters shared by all
// sampling strategies.
type Engine struct {
	arena      *population.Arena
	activities map[string]*scenario.ActivityParams
	model      infection.Model
	pending    *Queue

	sampleSize        float64
	daysInfectious    int
	targetContactRate float64

	trackingAfterDay   int
	traceSusceptible   bool
	trackingMinSeconds float64
}

// NewEngine creates the shared strategy engine.
func NewEngine(cfg *scenario.Scenario, arena *population.Arena, model infection.Model, pending *Queue) *Engine {
	return &Engine{
		arena:              arena,
		activities:         cfg.Activities,
		model:              model,
		pending:            pending,
		sampleSize:         cfg.SampleSize,
		daysInfectious:     cfg.DaysInfectious,
		targetContactRate:  cfg.TargetContactRate,
		trackingAfterDay:   cfg.Tracing.EnabledAfterDay,
		traceSusceptible:   cfg.Tracing.TraceSusceptible,
		trackingMinSeconds: cfg.Tracing.MinDuration,
	}
}

var fallbackParams = &scenario.ActivityParams{ContactIntensity: 1, Spaces: 1}

// params resolves an activity type to its parameters, matching the
// longest configured prefix so that subtypes like "edu_school" inherit
// the "edu" parameters.
func (e *Engine) params(activityType string) *scenario.ActivityParams {
	if p, ok := e.activities[activityType]; ok {
		return p
	}
	var best *scenario.ActivityParams
	for name, p := range e.activities {
		if strings.HasPrefix(activityType, name) {
			if best == nil || len(name) > len(best.Name) {
				best = p
			}
		}
	}
	if best != nil {
		return best
	}
	return fallbackParams
}

// performedParams resolves the parameters of the activity a person
// performs inside a container, diverting home-quarantined persons to
// the quarantine_home parameters.
func (e *Engine) performedParams(c *container.Container, p *population.Person) *scenario.ActivityParams {
	params := e.params(c.PerformedActivity(p.ID))
	if p.Quarantine() == population.QuarantineAtHome && params.Name == "home" {
		if qh, ok := e.activities["quarantine_home"]; ok {
			return qh
		}
	}
	return params
}

// activityName maps parameters back to the name used for infection
// types and containment rules; quarantined home stays "home".
func activityName(params *scenario.ActivityParams) string {
	if params.Name == "quarantine_home" {
		return "home"
	}
	return params.Name
}

// infectionType labels the interaction: "actA_actB" in facilities,
// "pt" in vehicles.
func infectionType(c *container.Container, leavingActivity, otherActivity string) string {
	if c.Kind() == container.Vehicle {
		return "pt"
	}
	return leavingActivity + "_" + otherActivity
}

// relevant reports whether a person takes part in tracking or infection
// dynamics in this container right now. It may consume random draws for
// the participation decisions.
func (e *Engine) relevant(ctx *Context, p *population.Person, c *container.Container) bool {
	if !relevantStatus(p) {
		return false
	}
	if p.Quarantine() == population.QuarantineFull {
		return false
	}
	if c.Kind() == container.Facility {
		return e.activityRelevant(ctx, p, c)
	}
	return e.tripRelevant(ctx, p, c)
}

// relevantStatus includes infectedButNotContagious so that tracking
// still sees pre-contagious persons; hospitalized and recovered persons
// are out of circulation.
func relevantStatus(p *population.Person) bool {
	switch p.Status() {
	case population.Susceptible, population.Contagious, population.ShowingSymptoms,
		population.InfectedButNotContagious:
		return true
	default:
		return false
	}
}

// activityRelevant reads the activity from the container presence, not
// the person's trajectory cursor, so that shards never race on it.
func (e *Engine) activityRelevant(ctx *Context, p *population.Person, c *container.Container) bool {
	actType := c.PerformedActivity(p.ID)

	if p.Quarantine() == population.QuarantineAtHome && !strings.HasPrefix(actType, "home") {
		return false
	}

	params := e.params(actType)
	r := ctx.Restrictions.Get(params.Name)

	if r.MaxGroupSize != policy.NoLimit && c.MaxGroupSize() > 0 && c.MaxGroupSize() > r.MaxGroupSize {
		return false
	}

	if rg := r.ReducedGroupSize; rg != policy.NoLimit && rg != math.MaxInt {
		current := float64(c.Size()) * e.sampleSize / c.Spaces()
		if ctx.Rng.Float64() > float64(rg)/current {
			return false
		}
	}

	if r.IsClosed(c.ID()) {
		return false
	}

	return e.actIsRelevant(ctx, params.Name)
}

func (e *Engine) tripRelevant(ctx *Context, p *population.Person, c *container.Container) bool {
	if p.Quarantine() != population.QuarantineNone {
		return false
	}
	prev, next := c.TripActivities(p.ID)
	if !e.actIsRelevant(ctx, "pt") || !e.actIsRelevant(ctx, e.params(next).Name) {
		return false
	}
	if prev != "" {
		return e.actIsRelevant(ctx, e.params(prev).Name)
	}
	return true
}

// actIsRelevant draws the activity-happening decision, skipping the
// draw when the outcome is certain.
func (e *Engine) actIsRelevant(ctx *Context, activity string) bool {
	r := ctx.Restrictions.Get(activity)
	if r.RemainingFraction == 1 {
		return true
	}
	if r.RemainingFraction == 0 {
		return false
	}
	return ctx.Rng.Float64() < r.RemainingFraction
}

// effectiveCapacity scales the container's observed maximum occupancy
// (vehicles: seat capacity) to the population sample. Degenerate values
// fall back to the current occupancy.
func (e *Engine) effectiveCapacity(c *container.Container) int {
	max := int(float64(c.MaxGroupSize()) * e.sampleSize)
	if c.Kind() == container.Vehicle && c.TypicalCapacity() > 0 {
		max = int(float64(c.TypicalCapacity()) * e.sampleSize)
	}
	if max <= 1 {
		max = c.Size()
	}
	return max
}

// contactIntensity is the crowding-normalized minimum intensity of both
// performed activities.
func contactIntensity(a, b *scenario.ActivityParams, maxPersons int) float64 {
	return math.Min(
		a.ContactIntensity/(float64(maxPersons)/a.Spaces),
		b.ContactIntensity/(float64(maxPersons)/b.Spaces),
	)
}

// jointTime computes the shared seconds of two persons in a container,
// reduced by the compliance-weighted closing-hours overlap of the
// leaver's activity.
func (e *Engine) jointTime(ctx *Context, now float64, params *scenario.ActivityParams,
	c *container.Container, a, b population.ID) float64 {

	enterA, _ := c.EnteredAt(a)
	enterB, _ := c.EnteredAt(b)
	latest := math.Max(enterA, enterB)

	r := ctx.Restrictions.Get(params.Name)
	if !r.HasClosingHours() {
		return now - latest
	}
	overlap := r.OverlapWithClosingHours(latest, now)
	if overlap > 0 {
		if jt := now - latest - overlap; jt > 0 {
			return jt
		}
		return 0
	}
	return now - latest
}

// allowedInteraction enforces the facility containment rules: home only
// mixes with home, leisure or work; education only with education or
// work.
func allowedInteraction(infType, leavingActivity, otherActivity string) bool {
	if strings.Contains(infType, "home") && !strings.Contains(infType, "leis") && !strings.Contains(infType, "work") &&
		!(strings.HasPrefix(leavingActivity, "home") && strings.HasPrefix(otherActivity, "home")) {
		return false
	}
	if strings.Contains(infType, "edu") && !strings.Contains(infType, "work") &&
		!(strings.HasPrefix(leavingActivity, "edu") && strings.HasPrefix(otherActivity, "edu")) {
		return false
	}
	return true
}

// track buffers the pair for both tracing ledgers. Fleeting or
// anonymous contacts (public transit, shopping) are not traceable.
func (e *Engine) track(ctx *Context, a, b *population.Person, now, jointTime float64, infType string) {
	if strings.Contains(infType, "pt") || strings.Contains(infType, "shop") {
		return
	}
	if jointTime < e.trackingMinSeconds {
		return
	}
	ctx.Tracked = append(ctx.Tracked, TrackedContact{A: a.ID, B: b.ID, Time: now})
}

// withinInfectiousWindow reports whether neither person is past the
// bounded infectious period.
func (e *Engine) withinInfectiousWindow(p, q *population.Person, day int) bool {
	for _, x := range []*population.Person{p, q} {
		if x.HadStatus(population.Contagious) {
			if since, ok := x.DaysSince(population.Contagious, day); ok && since > e.daysInfectious {
				return false
			}
		}
	}
	return true
}

// evaluatePair runs the infection step for one sampled pair: validates
// the joint time, computes the probability and enqueues a pending
// infection on a successful draw.
func (e *Engine) evaluatePair(ctx *Context, leaving, other *population.Person,
	c *container.Container, now, jointTime float64,
	leavingParams, otherParams *scenario.ActivityParams, infType string) error {

	if !infection.PersonsCanInfectEachOther(leaving, other) {
		return nil
	}
	if !e.withinInfectiousWindow(leaving, other, ctx.Day) {
		return nil
	}
	if jointTime < 0 || jointTime > 18*daySeconds {
		return fmt.Errorf("%w: %f seconds between person %d and %d in container %s",
			ErrImplausibleJointTime, jointTime, leaving.ID, other.ID, c.ID())
	}

	maxPersons := e.effectiveCapacity(c)
	ci := contactIntensity(leavingParams, otherParams, maxPersons)

	target, infector := leaving, other
	targetParams, infectorParams := leavingParams, otherParams
	if leaving.Status() != population.Susceptible {
		target, infector = other, leaving
		targetParams, infectorParams = otherParams, leavingParams
	}

	prob := e.model.Probability(ctx.Rng, target, infector, ctx.Restrictions,
		targetParams, infectorParams, ci, jointTime)

	if ctx.Rng.Float64() < prob {
		e.pending.Add(PendingInfection{
			Day:           ctx.Day,
			Time:          now,
			Target:        target.ID,
			Infector:      infector.ID,
			ContainerID:   c.ID(),
			InfectionType: infType,
			Strain:        infector.Strain(),
			Probability:   prob,
		})
	}
	return nil
}
