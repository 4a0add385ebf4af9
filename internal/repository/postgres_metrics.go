package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"straintrack-data/internal/domain"
)

// PostgresMetricsRepo persists derived daily metrics.
type PostgresMetricsRepo struct {
	q DBTX
}

var _ MetricsRepo = (*PostgresMetricsRepo)(nil)

func (r *PostgresMetricsRepo) UpsertBatch(ctx context.Context, facts []domain.MetricsFact) error {
	for start := 0; start < len(facts); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(facts) {
			end = len(facts)
		}
		if err := r.upsertChunk(ctx, facts[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresMetricsRepo) upsertChunk(ctx context.Context, facts []domain.MetricsFact) error {
	if len(facts) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO metrics_daily
			(id, date, region_id, bed_occ_pct, icu_occ_pct, strain_index, source_run_id)
		VALUES `)
	args := make([]any, 0, len(facts)*7)
	for i, f := range facts {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7)
		var icuOccPct any
		if f.ICUOccPct != nil {
			icuOccPct = *f.ICUOccPct
		}
		args = append(args, f.ID, f.Date, f.RegionID, f.BedOccPct, icuOccPct, f.StrainIndex, f.SourceRunID)
	}
	sb.WriteString(`
		ON CONFLICT (date, region_id) DO UPDATE SET
			bed_occ_pct = EXCLUDED.bed_occ_pct,
			icu_occ_pct = EXCLUDED.icu_occ_pct,
			strain_index = EXCLUDED.strain_index,
			source_run_id = EXCLUDED.source_run_id`)

	if _, err := r.q.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to upsert metrics facts: %w", err)
	}
	return nil
}

func (r *PostgresMetricsRepo) ListByDate(ctx context.Context, date time.Time) ([]*MetricsWithRegion, error) {
	query := `
		SELECT m.id::text, m.date, m.region_id::text, m.bed_occ_pct, m.icu_occ_pct,
		       m.strain_index, COALESCE(m.source_run_id::text, '') AS source_run_id,
		       m.created_at, reg.name
		FROM metrics_daily m
		JOIN regions reg ON m.region_id = reg.region_id
		WHERE m.date = $1
		ORDER BY reg.name
	`
	rows, err := r.q.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics by date: %w", err)
	}
	defer rows.Close()

	var result []*MetricsWithRegion
	for rows.Next() {
		var mwr MetricsWithRegion
		var icuOccPct sql.NullFloat64
		err := rows.Scan(
			&mwr.ID, &mwr.Date, &mwr.RegionID, &mwr.BedOccPct, &icuOccPct,
			&mwr.StrainIndex, &mwr.SourceRunID, &mwr.CreatedAt, &mwr.RegionName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metrics fact: %w", err)
		}
		if icuOccPct.Valid {
			v := icuOccPct.Float64
			mwr.ICUOccPct = &v
		}
		result = append(result, &mwr)
	}
	return result, rows.Err()
}

func (r *PostgresMetricsRepo) LatestDate(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	err := r.q.QueryRowContext(ctx, `SELECT MAX(date) FROM metrics_daily`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest metrics date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

func (r *PostgresMetricsRepo) CompareWithPreviousDay(ctx context.Context, date time.Time) ([]*StrainComparison, error) {
	query := `
		SELECT reg.name, cur.strain_index, prev.strain_index
		FROM metrics_daily cur
		JOIN regions reg ON cur.region_id = reg.region_id
		LEFT JOIN metrics_daily prev
		       ON prev.region_id = cur.region_id AND prev.date = cur.date - INTERVAL '1 day'
		WHERE cur.date = $1
		ORDER BY reg.name
	`
	rows, err := r.q.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to compare metrics: %w", err)
	}
	defer rows.Close()

	var result []*StrainComparison
	for rows.Next() {
		var cmp StrainComparison
		var prev sql.NullFloat64
		if err := rows.Scan(&cmp.Region, &cmp.StrainIndex, &prev); err != nil {
			return nil, fmt.Errorf("failed to scan comparison: %w", err)
		}
		if prev.Valid {
			v := prev.Float64
			cmp.PrevStrainIndex = &v
		}
		result = append(result, &cmp)
	}
	return result, rows.Err()
}

func (r *PostgresMetricsRepo) AvailableDates(ctx context.Context) (*time.Time, *time.Time, int, error) {
	query := `SELECT MIN(date), MAX(date), COUNT(DISTINCT date) FROM metrics_daily`
	var minDate, maxDate sql.NullTime
	var count int
	if err := r.q.QueryRowContext(ctx, query).Scan(&minDate, &maxDate, &count); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to get available dates: %w", err)
	}
	var minPtr, maxPtr *time.Time
	if minDate.Valid {
		t := minDate.Time
		minPtr = &t
	}
	if maxDate.Valid {
		t := maxDate.Time
		maxPtr = &t
	}
	return minPtr, maxPtr, count, nil
}

func (r *PostgresMetricsRepo) ListDates(ctx context.Context) ([]time.Time, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT date FROM metrics_daily ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *PostgresMetricsRepo) Coverage(ctx context.Context, minRows int) ([]DateCount, error) {
	query := `
		SELECT date, COUNT(id) AS rows
		FROM metrics_daily
		GROUP BY date
		HAVING COUNT(id) >= $1
		ORDER BY date ASC
	`
	rows, err := r.q.QueryContext(ctx, query, minRows)
	if err != nil {
		return nil, fmt.Errorf("failed to get coverage: %w", err)
	}
	defer rows.Close()

	var result []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan coverage row: %w", err)
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}
