// Package telemetry provides SQLite-backed recording of sampling runs: one
// row per run plus one row per outer step, so runs can be compared across
// methods, policies, and schedules after the fact.
package telemetry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/drozbay/RES4LYF/sampler"
)

// Store handles SQLite database operations for run recording.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// RunRecord is one sampling run.
type RunRecord struct {
	ID        string     `json:"id"`
	Method    string     `json:"method"`
	Policy    string     `json:"policy,omitempty"`
	Seed      int64      `json:"seed"`
	Steps     int        `json:"steps"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// StepRecord is one outer iteration of a run.
type StepRecord struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Step         int       `json:"step"`
	Timestamp    time.Time `json:"timestamp"`
	Sigma        float64   `json:"sigma"`
	SigmaHat     float64   `json:"sigma_hat"`
	SigmaNext    float64   `json:"sigma_next"`
	StateNorm    float64   `json:"state_norm"`
	DenoisedNorm float64   `json:"denoised_norm"`
}

// Open creates a Store at the given database path. A nil logger disables
// logging.
func Open(dbPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := &Store{db: db, log: log}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		method TEXT NOT NULL,
		policy TEXT,
		seed INTEGER NOT NULL DEFAULT 0,
		steps INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		sigma REAL NOT NULL,
		sigma_hat REAL NOT NULL,
		sigma_next REAL NOT NULL,
		state_norm REAL NOT NULL,
		denoised_norm REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	CREATE INDEX IF NOT EXISTS idx_steps_run_step ON steps(run_id, step);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one in-progress recording. Its Progress method satisfies the
// sampling loop's progress contract.
type Run struct {
	ID    string
	store *Store
	steps int
}

// BeginRun creates a run record and returns the handle used to record steps.
func (s *Store) BeginRun(method, policy string, seed int64) (*Run, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, method, policy, seed, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, method, policy, seed, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	s.log.Info("run started",
		zap.String("run", id),
		zap.String("method", method),
		zap.String("policy", policy),
		zap.Int64("seed", seed))
	return &Run{ID: id, store: s}, nil
}

// Progress returns the per-iteration callback recording this run. Recording
// failures are logged, not propagated; telemetry must never abort a run.
func (r *Run) Progress() sampler.ProgressFunc {
	return func(p sampler.Progress) {
		r.steps++
		var dnorm float64
		if p.Denoised2 != nil {
			dnorm = p.Denoised2.Norm()
		}
		_, err := r.store.db.Exec(
			`INSERT INTO steps (run_id, step, timestamp, sigma, sigma_hat, sigma_next, state_norm, denoised_norm)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, p.Step, time.Now().UTC(), p.Sigma, p.SigmaHat, p.SigmaNext, p.X.Norm(), dnorm,
		)
		if err != nil {
			r.store.log.Warn("step record failed", zap.String("run", r.ID), zap.Int("step", p.Step), zap.Error(err))
			return
		}
		r.store.log.Debug("step",
			zap.String("run", r.ID),
			zap.Int("step", p.Step),
			zap.Float64("sigma", p.Sigma),
			zap.Float64("state_norm", p.X.Norm()))
	}
}

// End marks the run as finished.
func (r *Run) End() error {
	_, err := r.store.db.Exec(
		`UPDATE runs SET steps = ?, ended_at = ? WHERE id = ?`,
		r.steps, time.Now().UTC(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	r.store.log.Info("run finished", zap.String("run", r.ID), zap.Int("steps", r.steps))
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, method, policy, seed, steps, started_at, ended_at FROM runs WHERE id = ?`, id,
	)
	var rec RunRecord
	var policy sql.NullString
	var endedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.Method, &policy, &rec.Seed, &rec.Steps, &rec.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if policy.Valid {
		rec.Policy = policy.String
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return &rec, nil
}

// GetSteps retrieves all step records for a run in step order.
func (s *Store) GetSteps(runID string) ([]*StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, step, timestamp, sigma, sigma_hat, sigma_next, state_norm, denoised_norm
		 FROM steps WHERE run_id = ? ORDER BY step`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*StepRecord
	for rows.Next() {
		var sr StepRecord
		err := rows.Scan(&sr.ID, &sr.RunID, &sr.Step, &sr.Timestamp,
			&sr.Sigma, &sr.SigmaHat, &sr.SigmaNext, &sr.StateNorm, &sr.DenoisedNorm)
		if err != nil {
			return nil, err
		}
		steps = append(steps, &sr)
	}
	return steps, rows.Err()
}

// RecentRuns returns the most recent runs.
func (s *Store) RecentRuns(limit int) ([]*RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, method, policy, seed, steps, started_at, ended_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var rec RunRecord
		var policy sql.NullString
		var endedAt sql.NullTime
		err := rows.Scan(&rec.ID, &rec.Method, &policy, &rec.Seed, &rec.Steps, &rec.StartedAt, &endedAt)
		if err != nil {
			return nil, err
		}
		if policy.Valid {
			rec.Policy = policy.String
		}
		if endedAt.Valid {
			rec.EndedAt = &endedAt.Time
		}
		runs = append(runs, &rec)
	}
	return runs, rows.Err()
}

// ExportRunJSON exports a run and its steps as JSON.
func (s *Store) ExportRunJSON(runID string) ([]byte, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return nil, err
	}
	steps, err := s.GetSteps(runID)
	if err != nil {
		return nil, err
	}
	export := map[string]any{
		"run":   run,
		"steps": steps,
	}
	return json.MarshalIndent(export, "", "  ")
}
