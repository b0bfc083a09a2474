package sqlite

import (
	"context"
	"fmt"

	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
)

// QueryStore reads persisted run data back out.
type QueryStore struct {
	db *DB
}

// NewQueryStore creates a new query store.
func NewQueryStore(db *DB) *QueryStore {
	return &QueryStore{db: db}
}

// ListInfections returns confirmed infections for a run in commit
// order. Pass day < 0 to fetch all days.
func (s *QueryStore) ListInfections(ctx context.Context, runID string, day int) ([]events.InfectionEvent, error) {
	query := `
		SELECT day, time, target, infector, container_id, infection_type, strain, probability
		FROM infections WHERE run_id = ?`
	args := []any{runID}
	if day >= 0 {
		query += " AND day = ?"
		args = append(args, day)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list infections: %w", err)
	}
	defer rows.Close()

	var out []events.InfectionEvent
	for rows.Next() {
		var ev events.InfectionEvent
		var target, infector int64
		if err := rows.Scan(&ev.Day, &ev.Time, &target, &infector,
			&ev.ContainerID, &ev.InfectionType, &ev.Strain, &ev.Probability); err != nil {
			return nil, fmt.Errorf("failed to scan infection: %w", err)
		}
		ev.Target = population.ID(target)
		ev.Infector = population.ID(infector)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate infections: %w", err)
	}
	return out, nil
}

// StatusCount is one (day, status) aggregate row.
type StatusCount struct {
	Day    int
	Status string
	Count  int
}

// DayCurve returns the per-status counts over all days of a run.
func (s *QueryStore) DayCurve(ctx context.Context, runID string) ([]StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, status, count FROM day_reports
		WHERE run_id = ? ORDER BY day, status`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query day curve: %w", err)
	}
	defer rows.Close()

	var out []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Day, &sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day curve: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate day curve: %w", err)
	}
	return out, nil
}

// NewInfectionsByDay returns the count of new infections per day,
// summed over strains. Days without infections are absent.
func (s *QueryStore) NewInfectionsByDay(ctx context.Context, runID string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, SUM(count) FROM day_strain_infections
		WHERE run_id = ? GROUP BY day`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query new infections: %w", err)
	}
	defer rows.Close()

	out := map[int]int{}
	for rows.Next() {
		var day, count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan new infections: %w", err)
		}
		out[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate new infections: %w", err)
	}
	return out, nil
}

// StatusChangesForPerson returns a person's full transition history.
func (s *QueryStore) StatusChangesForPerson(ctx context.Context, runID string, person population.ID) ([]events.StatusChangeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, time, person, from_status, to_status FROM status_changes
		WHERE run_id = ? AND person = ? ORDER BY id`, runID, int64(person))
	if err != nil {
		return nil, fmt.Errorf("failed to query status changes: %w", err)
	}
	defer rows.Close()

	var out []events.StatusChangeEvent
	for rows.Next() {
		var ev events.StatusChangeEvent
		var id int64
		var from, to string
		if err := rows.Scan(&ev.Day, &ev.Time, &id, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		ev.Person = population.ID(id)
		if ev.From, err = population.ParseDiseaseStatus(from); err != nil {
			return nil, fmt.Errorf("failed to parse status change: %w", err)
		}
		if ev.To, err = population.ParseDiseaseStatus(to); err != nil {
			return nil, fmt.Errorf("failed to parse status change: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status changes: %w", err)
	}
	return out, nil
}
