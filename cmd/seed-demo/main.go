package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"straintrack-data/internal/config"
	"straintrack-data/internal/database"
	"straintrack-data/internal/domain"
	"straintrack-data/internal/repository"

	"github.com/google/uuid"
)

// Seeds a demo region with one capacity fact for today so the dashboard has
// something to show on a fresh database. Safe to run repeatedly.
func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	store := repository.NewPostgresStore(db)
	ctx := context.Background()

	region, err := store.Regions().GetRegionByName(ctx, "Test Region")
	if err != nil {
		log.Fatalf("Failed to look up region: %v", err)
	}
	if region == nil {
		pop := 1000000
		region = &domain.Region{
			RegionID:   uuid.NewString(),
			Name:       "Test Region",
			Population: &pop,
		}
		if err := store.Regions().CreateRegion(ctx, region); err != nil {
			if !errors.Is(err, repository.ErrDuplicateRegion) {
				log.Fatalf("Failed to create region: %v", err)
			}
			if region, err = store.Regions().GetRegionByName(ctx, "Test Region"); err != nil || region == nil {
				log.Fatalf("Failed to re-read region: %v", err)
			}
		}
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	run := &domain.PipelineRun{
		RunID:     uuid.NewString(),
		Source:    "seed_demo",
		Status:    domain.RunStatusRunning,
		StartedAt: now,
	}
	if err := store.Runs().CreateRun(ctx, run); err != nil {
		log.Fatalf("Failed to create pipeline run: %v", err)
	}

	icuBeds, icuOccupied := 100, 92
	fact := domain.CapacityFact{
		ID:           uuid.NewString(),
		Date:         today,
		RegionID:     region.RegionID,
		TotalBeds:    1000,
		OccupiedBeds: 850,
		ICUBeds:      &icuBeds,
		ICUOccupied:  &icuOccupied,
		SourceRunID:  run.RunID,
	}
	err = store.InTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Capacity().UpsertBatch(ctx, []domain.CapacityFact{fact}); err != nil {
			return err
		}
		return tx.Runs().MarkSuccess(ctx, run.RunID, 1, 1, 0, time.Now().UTC())
	})
	if err != nil {
		_ = store.Runs().MarkFailed(ctx, run.RunID, fmt.Sprintf("Error: %v", err), time.Now().UTC())
		log.Fatalf("Failed to seed capacity fact: %v", err)
	}

	fmt.Printf("Seeded Test Region capacity for %s (run %s)\n", today.Format("2006-01-02"), run.RunID)
}
