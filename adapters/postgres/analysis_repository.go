// Package postgres persists analysis runs so past experiment results
// stay queryable through the API after the batch run finishes.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ablab/domain/core"
	"ablab/internal/analysis"
	"ablab/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	run_id        TEXT PRIMARY KEY,
	experiment_id TEXT NOT NULL,
	status        TEXT NOT NULL,
	alpha         DOUBLE PRECISION NOT NULL,
	correction    TEXT NOT NULL DEFAULT '',
	validation    JSONB NOT NULL,
	results       JSONB NOT NULL DEFAULT '[]',
	skipped       JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_experiment
	ON analysis_runs (experiment_id, created_at DESC);
`

// AnalysisRepository stores and retrieves completed analysis runs
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a repository over an open connection
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// EnsureSchema creates the analysis tables if they do not exist
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "creating analysis schema")
	}
	return nil
}

// SaveAnalysis persists one completed analysis run
func (r *AnalysisRepository) SaveAnalysis(ctx context.Context, a *analysis.Analysis) error {
	validationJSON, err := json.Marshal(a.Validation)
	if err != nil {
		return fmt.Errorf("failed to marshal validation report: %w", err)
	}
	resultsJSON, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	skippedJSON, err := json.Marshal(a.Skipped)
	if err != nil {
		return fmt.Errorf("failed to marshal skipped metrics: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (
			run_id, experiment_id, status, alpha, correction,
			validation, results, skipped, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			validation = EXCLUDED.validation,
			results = EXCLUDED.results,
			skipped = EXCLUDED.skipped`

	_, err = r.db.ExecContext(ctx, query,
		a.RunID.String(),
		a.ExperimentID.String(),
		string(a.Validation.Status()),
		a.Alpha,
		a.Correction,
		validationJSON,
		resultsJSON,
		skippedJSON,
		a.CreatedAt.Time(),
	)
	if err != nil {
		return errors.Wrap(err, "inserting analysis run")
	}
	return nil
}

// RunSummary is the list-view projection of a stored run
type RunSummary struct {
	RunID        string    `db:"run_id" json:"run_id"`
	ExperimentID string    `db:"experiment_id" json:"experiment_id"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ListRuns returns the most recent runs, newest first
func (r *AnalysisRepository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunSummary
	query := `
		SELECT run_id, experiment_id, status, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1`
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, errors.Wrap(err, "listing analysis runs")
	}
	return runs, nil
}

// GetRun loads one stored run by its ID
func (r *AnalysisRepository) GetRun(ctx context.Context, runID core.RunID) (*analysis.Analysis, error) {
	query := `
		SELECT run_id, experiment_id, alpha, correction,
			   validation, results, skipped, created_at
		FROM analysis_runs
		WHERE run_id = $1`

	var row struct {
		RunID        string    `db:"run_id"`
		ExperimentID string    `db:"experiment_id"`
		Alpha        float64   `db:"alpha"`
		Correction   string    `db:"correction"`
		Validation   []byte    `db:"validation"`
		Results      []byte    `db:"results"`
		Skipped      []byte    `db:"skipped"`
		CreatedAt    time.Time `db:"created_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, runID.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("analysis run " + runID.String())
		}
		return nil, errors.Wrap(err, "loading analysis run")
	}

	a := &analysis.Analysis{
		RunID:        core.RunID(row.RunID),
		ExperimentID: core.ExperimentID(row.ExperimentID),
		Alpha:        row.Alpha,
		Correction:   row.Correction,
		CreatedAt:    core.NewTimestamp(row.CreatedAt),
	}
	if err := json.Unmarshal(row.Validation, &a.Validation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal validation report: %w", err)
	}
	if err := json.Unmarshal(row.Results, &a.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	if err := json.Unmarshal(row.Skipped, &a.Skipped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skipped metrics: %w", err)
	}
	return a, nil
}

// LatestForExperiment loads the newest stored run for an experiment
func (r *AnalysisRepository) LatestForExperiment(ctx context.Context, id core.ExperimentID) (*analysis.Analysis, error) {
	var runID string
	query := `
		SELECT run_id FROM analysis_runs
		WHERE experiment_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	if err := r.db.GetContext(ctx, &runID, query, id.String()); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("analysis for experiment " + id.String())
		}
		return nil, errors.Wrap(err, "looking up latest run")
	}
	return r.GetRun(ctx, core.RunID(runID))
}
