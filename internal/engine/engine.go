// Package engine drives the simulation: one strictly sequential day
// loop replaying container events, with the per-container contact
// evaluation optionally sharded across workers and a single sequential
// confirm phase for deferred infections.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sgrunder/contagion/internal/antibody"
	"github.com/sgrunder/contagion/internal/contact"
	"github.com/sgrunder/contagion/internal/container"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/infection"
	"github.com/sgrunder/contagion/internal/policy"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/progression"
	"github.com/sgrunder/contagion/internal/replay"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
	"github.com/sgrunder/contagion/internal/transition"
)

const daySeconds = 24 * 3600

// Engine owns all simulation state for one run.
type Engine struct {
	cfg    *scenario.Scenario
	logger *slog.Logger

	arena        *population.Arena
	source       replay.Source
	strategy     contact.Strategy
	model        infection.Model
	machine      *progression.Machine
	antibodies   *antibody.Model
	pending      *contact.Queue
	reporter     events.Reporter
	restrictions policy.Restrictions

	root    *rng.Rand
	workers int
}

// New wires the engine from a validated scenario and a trace source.
func New(cfg *scenario.Scenario, source replay.Source, reporter events.Reporter, logger *slog.Logger) (*Engine, error) {
	if reporter == nil {
		reporter = events.Discard{}
	}

	arena := source.Arena()

	strains := make([]string, 0, len(cfg.Strains))
	for s := range cfg.Strains {
		strains = append(strains, s)
	}
	sort.Strings(strains)

	antibodies, err := antibody.NewModel(cfg.Antibodies, strains)
	if err != nil {
		return nil, fmt.Errorf("antibody model: %w", err)
	}

	matrix, err := transition.FromConfig(cfg.Transitions)
	if err != nil {
		return nil, fmt.Errorf("transition table: %w", err)
	}

	var decider progression.StateDecider
	switch cfg.ProgressionDecider {
	case "ageDependent":
		decider = progression.AgeDependentDecider{HospitalFactor: cfg.HospitalFactor}
	default:
		decider = progression.DefaultDecider{}
	}

	machine := progression.NewMachine(matrix, decider, cfg.Tracing, cfg.SampleSize, arena, reporter)

	masks := infection.NewMaskModel(cfg.MaskCompliance, cfg.Masks, arena.Len())

	var model infection.Model
	switch cfg.InfectionModel {
	case "seasonality":
		model = infection.NewWithSeasonality(cfg, masks)
	default:
		model = infection.NewWithAntibodies(cfg, masks, machine)
	}

	pending := &contact.Queue{}
	strategy, err := contact.NewStrategy(cfg.ContactModel, contact.NewEngine(cfg, arena, model, pending))
	if err != nil {
		return nil, err
	}

	restrictions, err := buildRestrictions(cfg)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger,
		arena:        arena,
		source:       source,
		strategy:     strategy,
		model:        model,
		machine:      machine,
		antibodies:   antibodies,
		pending:      pending,
		reporter:     reporter,
		restrictions: restrictions,
		root:         rng.New(cfg.Seed),
		workers:      workers,
	}

	for _, p := range arena.All() {
		antibodies.DrawImmuneResponse(p, e.root)
	}

	return e, nil
}

// buildRestrictions turns the static restriction config into the
// per-activity policy consumed by the contact strategies.
func buildRestrictions(cfg *scenario.Scenario) (policy.Restrictions, error) {
	rs := policy.Restrictions{}
	for activity, rc := range cfg.Restrictions {
		r := policy.None()
		if rc.RemainingFraction != nil {
			r.RemainingFraction = *rc.RemainingFraction
		}
		if rc.CiCorrection != nil {
			r.CiCorrection = *rc.CiCorrection
		}
		if rc.MaxGroupSize != nil {
			r.MaxGroupSize = *rc.MaxGroupSize
		}
		if rc.ReducedGroupSize != nil {
			r.ReducedGroupSize = *rc.ReducedGroupSize
		}
		if rc.ClosingFrom != nil && rc.ClosingTo != nil {
			r.ClosingHours = &policy.ClosingHours{From: *rc.ClosingFrom, To: *rc.ClosingTo}
		}
		if rc.ClosingHoursCompliance != nil {
			r.ClosingHoursCompliance = *rc.ClosingHoursCompliance
		}
		r.RequireMask = rc.RequireMask
		for _, id := range rc.ClosedContainers {
			r.Close(id)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("restriction for %q: %w", activity, err)
		}
		rs[activity] = r
	}
	return rs, nil
}

// Run executes the configured number of days. It returns the collected
// day reports; a context cancellation stops before the next day.
func (e *Engine) Run(ctx context.Context) ([]*events.DayReport, error) {
	reports := make([]*events.DayReport, 0, e.cfg.Days)

	for day := 1; day <= e.cfg.Days; day++ {
		select {
		case <-ctx.Done():
			return reports, ctx.Err()
		default:
		}

		rep, err := e.runDay(day)
		if err != nil {
			return reports, fmt.Errorf("day %d: %w", day, err)
		}
		reports = append(reports, rep)

		e.logger.Info("day finished",
			"day", day,
			"date", e.cfg.Start().AddDate(0, 0, day-1).Format("2006-01-02"),
			"infected", rep.TotalInfected(),
			"susceptible", rep.ByStatus[population.Susceptible],
			"quarantined", rep.InQuarantineFull+rep.InQuarantineHome)

		if !progression.CanProgress(rep) && !e.pendingWork(day) {
			e.logger.Info("no epidemic activity left, stopping early", "day", day)
			break
		}
	}
	return reports, nil
}

// pendingWork reports whether seeding or vaccination entries remain
// after the given day.
func (e *Engine) pendingWork(day int) bool {
	for _, s := range e.cfg.InitialInfections {
		if s.Day > day {
			return true
		}
	}
	for _, v := range e.cfg.Vaccinations {
		if v.Day > day {
			return true
		}
	}
	return false
}

// runDay processes a single simulated day: antibody updates, seeding,
// vaccination, the replay of container events with contact sampling,
// the sequential infection confirm phase and finally disease
// progression.
func (e *Engine) runDay(day int) (*events.DayReport, error) {
	dayRng := e.root.Split()

	e.machine.SetDay(day)
	e.model.SetDay(day, dayRng)

	for _, p := range e.arena.All() {
		if err := e.antibodies.Update(p, day); err != nil {
			return nil, err
		}
	}

	newByStrain := map[string]int{}

	if err := e.seedInfections(day, dayRng, newByStrain); err != nil {
		return nil, err
	}
	e.vaccinate(day, dayRng)

	if err := e.replayDay(day, dayRng); err != nil {
		return nil, err
	}

	if err := e.confirmInfections(day, newByStrain); err != nil {
		return nil, err
	}

	for _, p := range e.arena.All() {
		if err := e.machine.UpdateState(p, day, dayRng); err != nil {
			return nil, err
		}
	}
	e.machine.PruneLedgers(day)

	for _, c := range e.source.Containers() {
		c.Clear()
	}
	if r, ok := e.strategy.(interface{ Reset() }); ok {
		r.Reset()
	}
	for _, p := range e.arena.All() {
		p.ResetTrajectory()
	}

	return events.BuildDayReport(day, e.arena, newByStrain), nil
}

// seedInfections plants the day's scheduled infections into randomly
// chosen susceptible persons.
func (e *Engine) seedInfections(day int, r *rng.Rand, newByStrain map[string]int) error {
	for _, seed := range e.cfg.InitialInfections {
		if seed.Day != day {
			continue
		}
		seeded := 0
		for attempts := 0; seeded < seed.Count && attempts < e.arena.Len()*10; attempts++ {
			p := e.arena.Get(population.ID(r.IntN(e.arena.Len())))
			if p.Status() != population.Susceptible {
				continue
			}
			if err := p.SetStatus(day, population.InfectedButNotContagious); err != nil {
				return err
			}
			p.RecordInfection(seed.Strain, day)
			e.reporter.ReportInfection(events.InfectionEvent{
				Day:      day,
				Time:     float64(day-1) * daySeconds,
				Target:   p.ID,
				Infector: -1,
				Strain:   seed.Strain,
			})
			newByStrain[seed.Strain]++
			seeded++
		}
		if seeded < seed.Count {
			e.logger.Warn("not enough susceptible persons to seed",
				"day", day, "strain", seed.Strain, "wanted", seed.Count, "seeded", seeded)
		}
	}
	return nil
}

// vaccinate administers the day's scheduled doses, preferring persons
// with the fewest doses so far.
func (e *Engine) vaccinate(day int, r *rng.Rand) {
	for _, entry := range e.cfg.Vaccinations {
		if entry.Day != day {
			continue
		}
		given := 0
		for round := 0; round < 3 && given < entry.Count; round++ {
			for attempts := 0; given < entry.Count && attempts < e.arena.Len()*4; attempts++ {
				p := e.arena.Get(population.ID(r.IntN(e.arena.Len())))
				if p.NumVaccinations() != round {
					continue
				}
				if _, vaccinatedToday := p.VaccinationOnDay(day); vaccinatedToday {
					continue
				}
				p.RecordVaccination(entry.Type, day)
				e.reporter.ReportVaccination(events.VaccinationEvent{
					Day: day, Person: p.ID, Type: entry.Type, Dose: p.NumVaccinations(),
				})
				given++
			}
		}
	}
}

// replayDay shards the day's events by container and evaluates them,
// with a barrier before any results are applied. Child random streams
// are split in a stable order so that results do not depend on worker
// scheduling.
func (e *Engine) replayDay(day int, dayRng *rng.Rand) error {
	evts := e.source.DayEvents(day)
	if len(evts) == 0 {
		return nil
	}

	// group by container, preserving time order within each group
	perContainer := map[string][]replay.Event{}
	order := make([]string, 0)
	for _, ev := range evts {
		if _, ok := perContainer[ev.ContainerID]; !ok {
			order = append(order, ev.ContainerID)
		}
		perContainer[ev.ContainerID] = append(perContainer[ev.ContainerID], ev)
	}

	offset := float64(day-1) * daySeconds

	ctxs := make([]*contact.Context, len(order))
	for i := range order {
		ctxs[i] = &contact.Context{
			Day:          day,
			Rng:          dayRng.Split(),
			Restrictions: e.restrictions,
		}
	}

	errs := make([]error, len(order))
	advances := make([][]population.ID, len(order))
	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(order); i += e.workers {
				errs[i] = e.replayContainer(ctxs[i], perContainer[order[i]], offset, &advances[i])
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	// sequential phase: flush buffered ledger writes, trajectory
	// cursors and contact events
	for i, ctx := range ctxs {
		for _, id := range advances[i] {
			e.arena.Get(id).AdvanceTrajectory()
		}
		for _, t := range ctx.Tracked {
			e.arena.Get(t.A).AddTraceableContact(t.B, t.Time)
			e.arena.Get(t.B).AddTraceableContact(t.A, t.Time)
		}
		for _, ev := range ctx.Contacts {
			e.reporter.ReportContact(ev)
		}
	}
	return nil
}

// replayContainer runs one container's events in time order. Trajectory
// cursor advances are buffered; no shard touches another shard's
// persons.
func (e *Engine) replayContainer(ctx *contact.Context, evts []replay.Event, offset float64, advances *[]population.ID) error {
	for _, ev := range evts {
		c := e.source.Container(ev.ContainerID)
		if c == nil {
			return fmt.Errorf("unknown container %q in trace", ev.ContainerID)
		}
		now := offset + ev.Time
		p := e.arena.Get(ev.Person)

		switch ev.Kind {
		case replay.Enter:
			if c.Kind() == container.Vehicle {
				c.EnterTrip(p.ID, now, ev.PrevActivity, ev.NextActivity)
			} else {
				c.Enter(p.ID, now, ev.Activity)
			}
			e.strategy.OnEnter(ctx, p, c, now)
		case replay.Leave:
			if err := e.strategy.OnLeave(ctx, p, c, now); err != nil {
				return err
			}
			c.Leave(p.ID)
			if c.Kind() == container.Facility {
				*advances = append(*advances, p.ID)
			}
		}
	}
	return nil
}

// confirmInfections drains the pending queue and commits infections
// sequentially. A target already infected by an earlier commit of the
// same day is skipped; an invalid infector is fatal.
func (e *Engine) confirmInfections(day int, newByStrain map[string]int) error {
	pending := e.pending.Drain()

	// commit in a stable order regardless of task interleaving
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Infector < b.Infector
	})

	for _, pi := range pending {
		target := e.arena.Get(pi.Target)
		infector := e.arena.Get(pi.Infector)
		ok, err := pi.Revalidate(target, infector)
		if err != nil {
			return err
		}
		if !ok {
			// lost the race against an earlier infection today
			continue
		}

		now := pi.Time
		if limit := float64(day) * daySeconds; now > limit {
			now = limit
		}

		if err := target.SetStatus(day, population.InfectedButNotContagious); err != nil {
			return err
		}
		target.RecordInfection(pi.Strain, day)
		target.SetInfectionPlace(pi.ContainerID, pi.InfectionType)

		e.reporter.ReportInfection(events.InfectionEvent{
			Day:           day,
			Time:          now,
			Target:        pi.Target,
			Infector:      pi.Infector,
			ContainerID:   pi.ContainerID,
			InfectionType: pi.InfectionType,
			Strain:        pi.Strain,
			Probability:   pi.Probability,
		})
		newByStrain[pi.Strain]++
	}
	return nil
}
