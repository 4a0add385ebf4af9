package repository

import (
	"context"
	"fmt"
)

// Schema is the relational schema for the strain tracker, applied idempotently
// by cmd/init-db and by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id        UUID PRIMARY KEY,
    source        TEXT NOT NULL,
    status        TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    ended_at      TIMESTAMPTZ,
    rows_in       INTEGER NOT NULL DEFAULT 0,
    rows_loaded   INTEGER NOT NULL DEFAULT 0,
    rows_rejected INTEGER NOT NULL DEFAULT 0,
    notes         TEXT
);

CREATE TABLE IF NOT EXISTS regions (
    region_id  UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    population INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_regions_name UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS hospital_capacity_daily (
    id            UUID PRIMARY KEY,
    date          DATE NOT NULL,
    region_id     UUID NOT NULL REFERENCES regions(region_id),
    total_beds    INTEGER NOT NULL,
    occupied_beds INTEGER NOT NULL,
    icu_beds      INTEGER,
    icu_occupied  INTEGER,
    source_run_id UUID REFERENCES pipeline_runs(run_id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_hospital_capacity_daily_date_region UNIQUE (date, region_id)
);

CREATE TABLE IF NOT EXISTS metrics_daily (
    id            UUID PRIMARY KEY,
    date          DATE NOT NULL,
    region_id     UUID NOT NULL REFERENCES regions(region_id),
    bed_occ_pct   DOUBLE PRECISION NOT NULL,
    icu_occ_pct   DOUBLE PRECISION,
    strain_index  DOUBLE PRECISION NOT NULL,
    source_run_id UUID REFERENCES pipeline_runs(run_id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_metrics_daily_date_region UNIQUE (date, region_id)
);
`

// ApplySchema creates all tables if they do not already exist.
func ApplySchema(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
