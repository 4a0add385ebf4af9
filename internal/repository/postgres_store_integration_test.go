//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"straintrack-data/internal/config"
	"straintrack-data/internal/database"
	"straintrack-data/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getTestEnv("TEST_DB_HOST", "localhost"),
		Port:     getTestEnvInt("TEST_DB_PORT", 5432),
		User:     getTestEnv("TEST_DB_USER", "strain"),
		Password: getTestEnv("TEST_DB_PASSWORD", "strain"),
		Database: getTestEnv("TEST_DB_NAME", "strain_test"),
		SSLMode:  getTestEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}
	require.NoError(t, ApplySchema(context.Background(), db))
	return db
}

func getTestEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getTestEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func newTestRun(source string) *domain.PipelineRun {
	return &domain.PipelineRun{
		RunID:     uuid.NewString(),
		Source:    source,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

func TestPostgresRunsLifecycle(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db)
	ctx := context.Background()

	run := newTestRun("integration_test")
	require.NoError(t, store.Runs().CreateRun(ctx, run))
	require.NoError(t, store.Runs().SetRowsIn(ctx, run.RunID, 5))
	require.NoError(t, store.Runs().MarkSuccess(ctx, run.RunID, 5, 4, 1, time.Now().UTC()))

	got, err := store.Runs().GetRun(ctx, run.RunID)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusSuccess, got.Status)
	require.Equal(t, 5, got.RowsIn)
	require.Equal(t, 4, got.RowsLoaded)
	require.Equal(t, 1, got.RowsRejected)
	require.NotNil(t, got.EndedAt)

	// running -> terminal happens at most once
	err = store.Runs().MarkFailed(ctx, run.RunID, "Error: late", time.Now().UTC())
	require.Error(t, err)
}

func TestPostgresRegionsUnique(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db)
	ctx := context.Background()

	name := "it-region-" + uuid.NewString()
	region := &domain.Region{RegionID: uuid.NewString(), Name: name}
	require.NoError(t, store.Regions().CreateRegion(ctx, region))

	err := store.Regions().CreateRegion(ctx, &domain.Region{RegionID: uuid.NewString(), Name: name})
	require.ErrorIs(t, err, ErrDuplicateRegion)

	got, err := store.Regions().GetRegionByName(ctx, name)
	require.NoError(t, err)
	require.Equal(t, region.RegionID, got.RegionID)
}

func TestPostgresCapacityUpsertIdempotent(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db)
	ctx := context.Background()

	run := newTestRun("integration_test")
	require.NoError(t, store.Runs().CreateRun(ctx, run))
	region := &domain.Region{RegionID: uuid.NewString(), Name: "it-region-" + uuid.NewString()}
	require.NoError(t, store.Regions().CreateRegion(ctx, region))

	date := time.Date(2031, time.March, 1, 0, 0, 0, 0, time.UTC)
	fact := domain.CapacityFact{
		ID:           uuid.NewString(),
		Date:         date,
		RegionID:     region.RegionID,
		TotalBeds:    1000,
		OccupiedBeds: 850,
		SourceRunID:  run.RunID,
	}
	require.NoError(t, store.Capacity().UpsertBatch(ctx, []domain.CapacityFact{fact}))

	fact.ID = uuid.NewString()
	fact.OccupiedBeds = 870
	require.NoError(t, store.Capacity().UpsertBatch(ctx, []domain.CapacityFact{fact}))

	rows, err := store.Capacity().ListByDate(ctx, date)
	require.NoError(t, err)
	var match []*CapacityWithRegion
	for _, r := range rows {
		if r.RegionID == region.RegionID {
			match = append(match, r)
		}
	}
	require.Len(t, match, 1)
	require.Equal(t, 870, match[0].OccupiedBeds)
	require.Equal(t, region.Name, match[0].RegionName)
}

func TestPostgresInTransactionRollsBack(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db)
	ctx := context.Background()

	run := newTestRun("integration_test")
	require.NoError(t, store.Runs().CreateRun(ctx, run))
	region := &domain.Region{RegionID: uuid.NewString(), Name: "it-region-" + uuid.NewString()}
	require.NoError(t, store.Regions().CreateRegion(ctx, region))

	date := time.Date(2031, time.March, 2, 0, 0, 0, 0, time.UTC)
	boom := errors.New("forced failure")
	err := store.InTransaction(ctx, func(tx Store) error {
		fact := domain.CapacityFact{
			ID:           uuid.NewString(),
			Date:         date,
			RegionID:     region.RegionID,
			TotalBeds:    500,
			OccupiedBeds: 400,
			SourceRunID:  run.RunID,
		}
		if err := tx.Capacity().UpsertBatch(ctx, []domain.CapacityFact{fact}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := store.Capacity().ListByDate(ctx, date)
	require.NoError(t, err)
	for _, r := range rows {
		require.NotEqual(t, region.RegionID, r.RegionID, "rolled-back fact must not be visible")
	}
}

func TestPostgresMetricsQueries(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	store := NewPostgresStore(db)
	ctx := context.Background()

	run := newTestRun("integration_test")
	require.NoError(t, store.Runs().CreateRun(ctx, run))
	region := &domain.Region{RegionID: uuid.NewString(), Name: "it-region-" + uuid.NewString()}
	require.NoError(t, store.Regions().CreateRegion(ctx, region))

	d1 := time.Date(2031, time.March, 3, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	require.NoError(t, store.Metrics().UpsertBatch(ctx, []domain.MetricsFact{
		{ID: uuid.NewString(), Date: d1, RegionID: region.RegionID, BedOccPct: 0.8, StrainIndex: 80, SourceRunID: run.RunID},
		{ID: uuid.NewString(), Date: d2, RegionID: region.RegionID, BedOccPct: 0.85, StrainIndex: 89.2, SourceRunID: run.RunID},
	}))

	cmp, err := store.Metrics().CompareWithPreviousDay(ctx, d2)
	require.NoError(t, err)
	found := false
	for _, c := range cmp {
		if c.Region == region.Name {
			found = true
			require.InDelta(t, 89.2, c.StrainIndex, 1e-9)
			require.NotNil(t, c.PrevStrainIndex)
			require.InDelta(t, 80, *c.PrevStrainIndex, 1e-9)
		}
	}
	require.True(t, found, fmt.Sprintf("region %s missing from comparison", region.Name))

	minDate, maxDate, count, err := store.Metrics().AvailableDates(ctx)
	require.NoError(t, err)
	require.NotNil(t, minDate)
	require.NotNil(t, maxDate)
	require.GreaterOrEqual(t, count, 2)
}
