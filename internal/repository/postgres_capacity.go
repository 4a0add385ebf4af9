package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"straintrack-data/internal/domain"
)

// upsertChunkSize keeps multi-row VALUES lists well under the Postgres
// parameter limit (65535) at 8 parameters per row.
const upsertChunkSize = 500

// PostgresCapacityRepo persists hospital capacity facts.
type PostgresCapacityRepo struct {
	q DBTX
}

var _ CapacityRepo = (*PostgresCapacityRepo)(nil)

func (r *PostgresCapacityRepo) UpsertBatch(ctx context.Context, facts []domain.CapacityFact) error {
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

func (r *PostgresCapacityRepo) upsertChunk(ctx context.Context, facts []domain.CapacityFact) error {
	if len(facts) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO hospital_capacity_daily
			(id, date, region_id, total_beds, occupied_beds, icu_beds, icu_occupied, source_run_id)
		VALUES `)
	args := make([]any, 0, len(facts)*8)
	for i, f := range facts {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8)
		args = append(args,
			f.ID, f.Date, f.RegionID, f.TotalBeds, f.OccupiedBeds,
			nullableInt(f.ICUBeds), nullableInt(f.ICUOccupied), f.SourceRunID,
		)
	}
	sb.WriteString(`
		ON CONFLICT (date, region_id) DO UPDATE SET
			total_beds = EXCLUDED.total_beds,
			occupied_beds = EXCLUDED.occupied_beds,
			icu_beds = EXCLUDED.icu_beds,
			icu_occupied = EXCLUDED.icu_occupied,
			source_run_id = EXCLUDED.source_run_id`)

	if _, err := r.q.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to upsert capacity facts: %w", err)
	}
	return nil
}

func (r *PostgresCapacityRepo) ListAll(ctx context.Context) ([]*domain.CapacityFact, error) {
	query := `
		SELECT id::text, date, region_id::text, total_beds, occupied_beds,
		       icu_beds, icu_occupied, COALESCE(source_run_id::text, '') AS source_run_id, created_at
		FROM hospital_capacity_daily
		ORDER BY date, region_id
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list capacity facts: %w", err)
	}
	defer rows.Close()

	var facts []*domain.CapacityFact
	for rows.Next() {
		fact, err := scanCapacityFact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capacity fact: %w", err)
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

func (r *PostgresCapacityRepo) ListByDate(ctx context.Context, date time.Time) ([]*CapacityWithRegion, error) {
	query := `
		SELECT c.id::text, c.date, c.region_id::text, c.total_beds, c.occupied_beds,
		       c.icu_beds, c.icu_occupied, COALESCE(c.source_run_id::text, '') AS source_run_id,
		       c.created_at, reg.name
		FROM hospital_capacity_daily c
		JOIN regions reg ON c.region_id = reg.region_id
		WHERE c.date = $1
		ORDER BY reg.name
	`
	rows, err := r.q.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list capacity by date: %w", err)
	}
	defer rows.Close()

	var result []*CapacityWithRegion
	for rows.Next() {
		var cwr CapacityWithRegion
		var icuBeds, icuOccupied sql.NullInt64
		err := rows.Scan(
			&cwr.ID, &cwr.Date, &cwr.RegionID, &cwr.TotalBeds, &cwr.OccupiedBeds,
			&icuBeds, &icuOccupied, &cwr.SourceRunID, &cwr.CreatedAt, &cwr.RegionName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capacity fact: %w", err)
		}
		cwr.ICUBeds = nullIntPtr(icuBeds)
		cwr.ICUOccupied = nullIntPtr(icuOccupied)
		result = append(result, &cwr)
	}
	return result, rows.Err()
}

func (r *PostgresCapacityRepo) LatestDate(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	err := r.q.QueryRowContext(ctx, `SELECT MAX(date) FROM hospital_capacity_daily`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest capacity date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time
	return &t, nil
}

func scanCapacityFact(s rowScanner) (*domain.CapacityFact, error) {
	var fact domain.CapacityFact
	var icuBeds, icuOccupied sql.NullInt64
	err := s.Scan(
		&fact.ID, &fact.Date, &fact.RegionID, &fact.TotalBeds, &fact.OccupiedBeds,
		&icuBeds, &icuOccupied, &fact.SourceRunID, &fact.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	fact.ICUBeds = nullIntPtr(icuBeds)
	fact.ICUOccupied = nullIntPtr(icuOccupied)
	return &fact, nil
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
