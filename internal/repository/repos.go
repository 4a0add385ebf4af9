package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"straintrack-data/internal/domain"
)

// ErrDuplicateRegion is returned by CreateRegion when another writer already
// holds the region name. The store's UNIQUE constraint is the authority; the
// caller is expected to re-read and fold into the winning row.
var ErrDuplicateRegion = errors.New("region name already exists")

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction scope.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RunsRepo tracks pipeline run lifecycle records.
type RunsRepo interface {
	// CreateRun inserts a new run row with status=running.
	CreateRun(ctx context.Context, run *domain.PipelineRun) error

	// SetRowsIn records the input row count on a running run.
	SetRowsIn(ctx context.Context, runID string, rowsIn int) error

	// MarkSuccess transitions running -> success with final counters.
	MarkSuccess(ctx context.Context, runID string, rowsIn, rowsLoaded, rowsRejected int, endedAt time.Time) error

	// MarkFailed transitions running -> failed, recording the error text.
	MarkFailed(ctx context.Context, runID string, notes string, endedAt time.Time) error

	GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error)

	// ListRuns returns the most recent runs, started_at descending.
	ListRuns(ctx context.Context, limit int) ([]*domain.PipelineRun, error)
}

// RegionsRepo resolves and creates reporting regions.
type RegionsRepo interface {
	// GetRegionByName returns nil, nil when the name is unknown.
	GetRegionByName(ctx context.Context, name string) (*domain.Region, error)

	// CreateRegion inserts a new region; ErrDuplicateRegion on a name clash.
	CreateRegion(ctx context.Context, region *domain.Region) error
}

// CapacityWithRegion joins a capacity fact with its region name for the read API.
type CapacityWithRegion struct {
	domain.CapacityFact
	RegionName string
}

// CapacityRepo stores hospital capacity facts keyed on (date, region).
type CapacityRepo interface {
	// UpsertBatch inserts or replaces facts on the (date, region_id) natural
	// key as a set-based operation. Applying the same batch twice yields the
	// same stored state.
	UpsertBatch(ctx context.Context, facts []domain.CapacityFact) error

	// ListAll returns every stored capacity fact (metrics derivation input).
	ListAll(ctx context.Context) ([]*domain.CapacityFact, error)

	ListByDate(ctx context.Context, date time.Time) ([]*CapacityWithRegion, error)

	// LatestDate returns nil when the table is empty.
	LatestDate(ctx context.Context) (*time.Time, error)
}

// MetricsWithRegion joins a metrics fact with its region name for the read API.
type MetricsWithRegion struct {
	domain.MetricsFact
	RegionName string
}

// StrainComparison is one region's strain index against the previous day.
type StrainComparison struct {
	Region          string   `json:"region"`
	StrainIndex     float64  `json:"strain_index"`
	PrevStrainIndex *float64 `json:"prev_strain_index"`
}

// DateCount is the number of metrics rows stored for one date.
type DateCount struct {
	Date time.Time
	Rows int
}

// MetricsRepo stores derived daily metrics keyed on (date, region).
type MetricsRepo interface {
	// UpsertBatch has the same natural-key replace semantics as CapacityRepo.
	UpsertBatch(ctx context.Context, facts []domain.MetricsFact) error

	ListByDate(ctx context.Context, date time.Time) ([]*MetricsWithRegion, error)

	// LatestDate returns nil when the table is empty.
	LatestDate(ctx context.Context) (*time.Time, error)

	// CompareWithPreviousDay returns each region's strain index on date, with
	// the previous day's value when one exists.
	CompareWithPreviousDay(ctx context.Context, date time.Time) ([]*StrainComparison, error)

	// AvailableDates returns min/max distinct dates and their count.
	AvailableDates(ctx context.Context) (minDate, maxDate *time.Time, count int, err error)

	// ListDates returns all distinct dates, ascending.
	ListDates(ctx context.Context) ([]time.Time, error)

	// Coverage returns dates having at least minRows rows, ascending.
	Coverage(ctx context.Context, minRows int) ([]DateCount, error)
}

// Store bundles the repositories with transaction scoping. Repositories
// obtained inside InTransaction share one transaction that commits only when
// the callback returns nil and rolls back wholesale otherwise.
type Store interface {
	Runs() RunsRepo
	Regions() RegionsRepo
	Capacity() CapacityRepo
	Metrics() MetricsRepo

	InTransaction(ctx context.Context, fn func(Store) error) error
}
