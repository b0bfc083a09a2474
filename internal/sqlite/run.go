package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one persisted simulation run.
type Run struct {
	ID         string
	Label      string
	Seed       uint64
	Days       int
	Population int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStore manages run metadata.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new run store.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun registers a new run and returns it with a fresh id.
func (s *RunStore) CreateRun(ctx context.Context, label string, seed uint64, days, population int) (*Run, error) {
	run := &Run{
		ID:         uuid.New().String(),
		Label:      label,
		Seed:       seed,
		Days:       days,
		Population: population,
		StartedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, seed, days, population, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, int64(run.Seed), run.Days, run.Population, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// FinishRun marks the run as completed.
func (s *RunStore) FinishRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun fetches a run by id.
func (s *RunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	var seed int64
	var finished sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, seed, days, population, started_at, finished_at
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Label, &seed, &run.Days, &run.Population, &run.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Seed = uint64(seed)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, seed, days, population, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var seed int64
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.Label, &seed, &run.Days, &run.Population, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Seed = uint64(seed)
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
