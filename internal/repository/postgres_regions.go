package repository

import (
	"context"
	"database/sql"
	"fmt"

	"straintrack-data/internal/domain"

	"github.com/lib/pq"
)

// PostgresRegionsRepo persists reporting regions.
type PostgresRegionsRepo struct {
	q DBTX
}

var _ RegionsRepo = (*PostgresRegionsRepo)(nil)

func (r *PostgresRegionsRepo) GetRegionByName(ctx context.Context, name string) (*domain.Region, error) {
	query := `
		SELECT region_id::text, name, population, created_at
		FROM regions
		WHERE name = $1
	`
	var region domain.Region
	var population sql.NullInt64
	err := r.q.QueryRowContext(ctx, query, name).Scan(
		&region.RegionID, &region.Name, &population, &region.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get region by name: %w", err)
	}
	if population.Valid {
		p := int(population.Int64)
		region.Population = &p
	}
	return &region, nil
}

func (r *PostgresRegionsRepo) CreateRegion(ctx context.Context, region *domain.Region) error {
	query := `
		INSERT INTO regions (region_id, name, population)
		VALUES ($1, $2, $3)
	`
	var population any
	if region.Population != nil {
		population = *region.Population
	}
	_, err := r.q.ExecContext(ctx, query, region.RegionID, region.Name, population)
	if err != nil {
		// 23505 = unique_violation; the name constraint is the authority when
		// two runs create the same region concurrently.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateRegion
		}
		return fmt.Errorf("failed to create region: %w", err)
	}
	return nil
}
