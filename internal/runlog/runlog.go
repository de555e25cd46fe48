// Package runlog persists migration run history to a local sqlite database:
// one row per run plus one row per executed phase. The pipeline core knows
// nothing about it; a runlog Recorder plugs into the executor as an
// observer.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/migrate-cli/internal/model"
)

// Store records runs and their phases in sqlite.
type Store struct {
	db *sql.DB
}

// New opens the runlog database at dsn and configures WAL mode.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	outcome     TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_phases (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	name        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
`

// Migrate creates the runlog schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new running run and returns it.
func (s *Store) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: create run")
	}
	return run, nil
}

// FinishRun marks the run complete or failed. outcome may be nil when the
// pipeline raised before producing one.
func (s *Store) FinishRun(ctx context.Context, runID string, outcome *model.LoadOutcome, runErr error) error {
	status := model.RunStatusComplete
	errText := ""
	if runErr != nil {
		status = model.RunStatusFailed
		errText = runErr.Error()
	}

	var outcomeJSON any
	if outcome != nil {
		data, err := json.Marshal(outcome)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal outcome")
		}
		outcomeJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, outcome = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, outcomeJSON, errText, time.Now().UTC(), runID,
	)
	return eris.Wrap(err, "runlog: finish run")
}

// StartPhase inserts a running phase row and returns its id.
func (s *Store) StartPhase(ctx context.Context, runID, name string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, model.PhaseStatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "runlog: start phase")
	}
	return id, nil
}

// CompletePhase records the phase's final status and duration.
func (s *Store) CompletePhase(ctx context.Context, phaseID string, duration time.Duration, phaseErr error) error {
	status := model.PhaseStatusComplete
	errText := ""
	if phaseErr != nil {
		status = model.PhaseStatusFailed
		errText = phaseErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, error = ?, duration_ms = ? WHERE id = ?`,
		status, errText, duration.Milliseconds(), phaseID,
	)
	return eris.Wrap(err, "runlog: complete phase")
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, outcome, error, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var (
			run         model.Run
			outcomeJSON sql.NullString
			errText     sql.NullString
			finishedAt  sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.Status, &outcomeJSON, &errText, &run.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		if outcomeJSON.Valid && outcomeJSON.String != "" {
			var outcome model.LoadOutcome
			if err := json.Unmarshal([]byte(outcomeJSON.String), &outcome); err != nil {
				return nil, eris.Wrap(err, "runlog: unmarshal outcome")
			}
			run.Outcome = &outcome
		}
		if errText.Valid {
			run.Error = errText.String
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListPhases returns the phases of one run in start order.
func (s *Store) ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, name, status, error, duration_ms, started_at
		 FROM run_phases WHERE run_id = ? ORDER BY started_at`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list phases")
	}
	defer rows.Close()

	var phases []model.RunPhase
	for rows.Next() {
		var (
			phase   model.RunPhase
			errText sql.NullString
		)
		if err := rows.Scan(&phase.ID, &phase.RunID, &phase.Name, &phase.Status, &errText, &phase.Duration, &phase.StartedAt); err != nil {
			return nil, eris.Wrap(err, "runlog: scan phase")
		}
		if errText.Valid {
			phase.Error = errText.String
		}
		phases = append(phases, phase)
	}
	return phases, rows.Err()
}
