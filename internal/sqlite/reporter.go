package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
)

// Reporter persists engine events for one run. Write failures are
// logged and swallowed so a full disk never aborts a simulation.
type Reporter struct {
	db     *DB
	runID  string
	logger *slog.Logger

	// PersistContacts controls whether raw contacts are written. The
	// contact stream dwarfs every other table, so it is off by default.
	PersistContacts bool
}

// NewReporter creates a reporter bound to a run.
func NewReporter(db *DB, runID string, logger *slog.Logger) *Reporter {
	return &Reporter{db: db, runID: runID, logger: logger}
}

func (r *Reporter) ReportInfection(ev events.InfectionEvent) {
	_, err := r.db.ExecContext(context.Background(), `
		INSERT INTO infections (run_id, day, time, target, infector, container_id, infection_type, strain, probability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, ev.Day, ev.Time, int64(ev.Target), int64(ev.Infector),
		ev.ContainerID, ev.InfectionType, ev.Strain, ev.Probability)
	if err != nil {
		r.logger.Error("failed to persist infection", "day", ev.Day, "target", ev.Target, "error", err)
	}
}

func (r *Reporter) ReportContact(ev events.ContactEvent) {
	if !r.PersistContacts {
		return
	}
	_, err := r.db.ExecContext(context.Background(), `
		INSERT INTO contacts (run_id, day, time, person_a, person_b, container_id, infection_type, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, ev.Day, ev.Time, int64(ev.PersonA), int64(ev.PersonB),
		ev.ContainerID, ev.InfectionType, ev.Duration)
	if err != nil {
		r.logger.Error("failed to persist contact", "day", ev.Day, "error", err)
	}
}

func (r *Reporter) ReportStatusChange(ev events.StatusChangeEvent) {
	_, err := r.db.ExecContext(context.Background(), `
		INSERT INTO status_changes (run_id, day, time, person, from_status, to_status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.runID, ev.Day, ev.Time, int64(ev.Person), ev.From.String(), ev.To.String())
	if err != nil {
		r.logger.Error("failed to persist status change", "day", ev.Day, "person", ev.Person, "error", err)
	}
}

func (r *Reporter) ReportVaccination(ev events.VaccinationEvent) {
	_, err := r.db.ExecContext(context.Background(), `
		INSERT INTO vaccinations (run_id, day, person, type, dose)
		VALUES (?, ?, ?, ?, ?)`,
		r.runID, ev.Day, int64(ev.Person), ev.Type, ev.Dose)
	if err != nil {
		r.logger.Error("failed to persist vaccination", "day", ev.Day, "person", ev.Person, "error", err)
	}
}

// SaveDayReport writes the end-of-day aggregates in one transaction.
func (r *Reporter) SaveDayReport(ctx context.Context, rep *events.DayReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for s := 0; s < population.NumStatuses; s++ {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO day_reports (run_id, day, status, count) VALUES (?, ?, ?, ?)`,
			r.runID, rep.Day, population.DiseaseStatus(s).String(), rep.ByStatus[s])
		if isUniqueViolation(err) {
			return fmt.Errorf("day report for day %d exists: %w", rep.Day, ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("run %s: %w", r.runID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to save day report: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO day_summaries (run_id, day, quarantine_full, quarantine_home)
		VALUES (?, ?, ?, ?)`,
		r.runID, rep.Day, rep.InQuarantineFull, rep.InQuarantineHome)
	if err != nil {
		return fmt.Errorf("failed to save day summary: %w", err)
	}

	for strain, count := range rep.InfectionsByStrain {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO day_strain_infections (run_id, day, strain, count)
			VALUES (?, ?, ?, ?)`,
			r.runID, rep.Day, strain, count)
		if err != nil {
			return fmt.Errorf("failed to save strain infections: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit day report: %w", err)
	}
	return nil
}
