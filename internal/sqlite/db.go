package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The writer is single-threaded; one connection avoids lock churn
	db.SetMaxOpenConns(1)

	return &DB{db}, nil
}

// RunMigrations creates the schema. The schema is versionless; a run
// database is created fresh per simulation and never migrated in place.
func (db *DB) RunMigrations() error {
	migration := `
-- Simulation runs
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    seed INTEGER NOT NULL,
    days INTEGER NOT NULL,
    population INTEGER NOT NULL,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

-- Confirmed infections
CREATE TABLE IF NOT EXISTS infections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    time REAL NOT NULL,
    target INTEGER NOT NULL,
    infector INTEGER NOT NULL,
    container_id TEXT NOT NULL,
    infection_type TEXT NOT NULL,
    strain TEXT NOT NULL,
    probability REAL NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_run_infections ON infections(run_id);
CREATE INDEX IF NOT EXISTS idx_run_infection_day ON infections(run_id, day);

-- Disease status transitions
CREATE TABLE IF NOT EXISTS status_changes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    time REAL NOT NULL,
    person INTEGER NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_run_status_changes ON status_changes(run_id);
CREATE INDEX IF NOT EXISTS idx_run_status_person ON status_changes(run_id, person);

-- Administered vaccinations
CREATE TABLE IF NOT EXISTS vaccinations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    person INTEGER NOT NULL,
    type TEXT NOT NULL,
    dose INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_run_vaccinations ON vaccinations(run_id);

-- Raw contacts, only stored when contact persistence is enabled
CREATE TABLE IF NOT EXISTS contacts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    time REAL NOT NULL,
    person_a INTEGER NOT NULL,
    person_b INTEGER NOT NULL,
    container_id TEXT NOT NULL,
    infection_type TEXT NOT NULL,
    duration REAL NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_run_contacts ON contacts(run_id, day);

-- End-of-day aggregates, one row per status per day
CREATE TABLE IF NOT EXISTS day_reports (
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    status TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (run_id, day, status),
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

-- Quarantine and new-infection aggregates per day
CREATE TABLE IF NOT EXISTS day_summaries (
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    quarantine_full INTEGER NOT NULL,
    quarantine_home INTEGER NOT NULL,
    PRIMARY KEY (run_id, day),
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS day_strain_infections (
    run_id TEXT NOT NULL,
    day INTEGER NOT NULL,
    strain TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (run_id, day, strain),
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
