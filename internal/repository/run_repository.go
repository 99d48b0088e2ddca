package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/trajectory-prep/internal/models"
)

// ErrRunNotFound is returned when no preparation run has the requested ID
var ErrRunNotFound = errors.New("prepare run not found")

// RunRepository handles database operations for preparation runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, status, force, total_sources, processed_sources, failed_sources,
	progress_percent, dataset_key, cached, error_message, created_by,
	created_at, started_at, completed_at`

// Create inserts a new run. CreatedAt is set when zero.
func (r *RunRepository) Create(run *models.PrepareRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}

	query := `
		INSERT INTO prepare_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Status,
		run.Force,
		run.TotalSources,
		run.ProcessedSources,
		run.FailedSources,
		run.ProgressPercent,
		run.DatasetKey,
		run.Cached,
		run.ErrorMessage,
		run.CreatedBy,
		toMillis(run.CreatedAt),
		nullMillis(run.StartedAt),
		nullMillis(run.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create prepare run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by ID
func (r *RunRepository) GetByID(id string) (*models.PrepareRun, error) {
	query := `SELECT ` + runColumns + ` FROM prepare_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prepare run: %w", err)
	}

	return run, nil
}

// List retrieves runs, newest first, optionally filtered by status
func (r *RunRepository) List(filter models.RunFilter) ([]*models.PrepareRun, error) {
	query := `SELECT ` + runColumns + ` FROM prepare_runs WHERE 1=1`

	args := []interface{}{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prepare runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.PrepareRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prepare run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// HasActive reports whether any run is pending or running
func (r *RunRepository) HasActive() (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM prepare_runs WHERE status IN (?, ?)",
		models.RunStatusPending, models.RunStatusRunning,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count active runs: %w", err)
	}
	return count > 0, nil
}

// MarkAsRunning marks a run as running with the number of sources to process
func (r *RunRepository) MarkAsRunning(id string, totalSources int) error {
	query := `
		UPDATE prepare_runs
		SET status = ?, total_sources = ?, started_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.RunStatusRunning, totalSources, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}

	return nil
}

// UpdateProgress records how many sources have been processed
func (r *RunRepository) UpdateProgress(id string, processed, failed int, progressPercent float64) error {
	query := `
		UPDATE prepare_runs
		SET processed_sources = ?, failed_sources = ?, progress_percent = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, processed, failed, progressPercent, id)
	if err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}

	return nil
}

// MarkAsCompleted marks a run as completed with the dataset it produced
func (r *RunRepository) MarkAsCompleted(id, datasetKey string, cached bool) error {
	query := `
		UPDATE prepare_runs
		SET status = ?, dataset_key = ?, cached = ?, progress_percent = 100, completed_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.RunStatusCompleted, datasetKey, cached, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark run as completed: %w", err)
	}

	return nil
}

// MarkAsFailed marks a run as failed with an error message
func (r *RunRepository) MarkAsFailed(id, errorMessage string) error {
	query := `
		UPDATE prepare_runs
		SET status = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, models.RunStatusFailed, errorMessage, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark run as failed: %w", err)
	}

	return nil
}

// FailInterrupted marks runs left pending or running by a previous process
// as failed and returns how many were updated
func (r *RunRepository) FailInterrupted() (int64, error) {
	result, err := r.db.Exec(`
		UPDATE prepare_runs
		SET status = ?, error_message = 'interrupted', completed_at = ?
		WHERE status IN (?, ?)
	`, models.RunStatusFailed, toMillis(time.Now()), models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to reset interrupted runs: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.PrepareRun, error) {
	run := &models.PrepareRun{}
	var createdAt int64
	var startedAt, completedAt sql.NullInt64

	err := s.Scan(
		&run.ID,
		&run.Status,
		&run.Force,
		&run.TotalSources,
		&run.ProcessedSources,
		&run.FailedSources,
		&run.ProgressPercent,
		&run.DatasetKey,
		&run.Cached,
		&run.ErrorMessage,
		&run.CreatedBy,
		&createdAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.CreatedAt = fromMillis(createdAt)
	run.StartedAt = fromNullMillis(startedAt)
	run.CompletedAt = fromNullMillis(completedAt)

	return run, nil
}
