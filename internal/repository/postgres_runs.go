package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"straintrack-data/internal/domain"
)

// PostgresRunsRepo persists pipeline run records.
type PostgresRunsRepo struct {
	q DBTX
}

var _ RunsRepo = (*PostgresRunsRepo)(nil)

func (r *PostgresRunsRepo) CreateRun(ctx context.Context, run *domain.PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (run_id, source, status, started_at, rows_in, rows_loaded, rows_rejected, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		run.RunID, run.Source, run.Status, run.StartedAt,
		run.RowsIn, run.RowsLoaded, run.RowsRejected, nullableString(run.Notes),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return nil
}

func (r *PostgresRunsRepo) SetRowsIn(ctx context.Context, runID string, rowsIn int) error {
	query := `UPDATE pipeline_runs SET rows_in = $2 WHERE run_id = $1`
	if _, err := r.q.ExecContext(ctx, query, runID, rowsIn); err != nil {
		return fmt.Errorf("failed to set rows_in: %w", err)
	}
	return nil
}

func (r *PostgresRunsRepo) MarkSuccess(ctx context.Context, runID string, rowsIn, rowsLoaded, rowsRejected int, endedAt time.Time) error {
	query := `
		UPDATE pipeline_runs
		SET status = $2, rows_in = $3, rows_loaded = $4, rows_rejected = $5, ended_at = $6
		WHERE run_id = $1 AND status = $7
	`
	res, err := r.q.ExecContext(ctx, query,
		runID, domain.RunStatusSuccess, rowsIn, rowsLoaded, rowsRejected, endedAt, domain.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run success: %w", err)
	}
	return requireOneRow(res, runID)
}

func (r *PostgresRunsRepo) MarkFailed(ctx context.Context, runID string, notes string, endedAt time.Time) error {
	query := `
		UPDATE pipeline_runs
		SET status = $2, notes = $3, ended_at = $4
		WHERE run_id = $1 AND status = $5
	`
	res, err := r.q.ExecContext(ctx, query,
		runID, domain.RunStatusFailed, notes, endedAt, domain.RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return requireOneRow(res, runID)
}

func (r *PostgresRunsRepo) GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	query := `
		SELECT run_id::text, source, status, started_at, ended_at,
		       rows_in, rows_loaded, rows_rejected, COALESCE(notes, '') AS notes
		FROM pipeline_runs
		WHERE run_id = $1
	`
	run, err := scanRun(r.q.QueryRowContext(ctx, query, runID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return run, nil
}

func (r *PostgresRunsRepo) ListRuns(ctx context.Context, limit int) ([]*domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT run_id::text, source, status, started_at, ended_at,
		       rows_in, rows_loaded, rows_rejected, COALESCE(notes, '') AS notes
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var endedAt sql.NullTime
	err := s.Scan(
		&run.RunID, &run.Source, &run.Status, &run.StartedAt, &endedAt,
		&run.RowsIn, &run.RowsLoaded, &run.RowsRejected, &run.Notes,
	)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		t := endedAt.Time
		run.EndedAt = &t
	}
	return &run, nil
}

// requireOneRow guards the running -> terminal transition: the WHERE clause
// filters on status=running, so an already-finalized run is not touched.
func requireOneRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("run %s is not in running state", runID)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
