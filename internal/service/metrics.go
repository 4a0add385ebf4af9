package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"straintrack-data/internal/domain"
	"straintrack-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetricsService recomputes the derived metrics table from the stored
// capacity facts as a separate batch pass under its own pipeline run.
type MetricsService struct {
	store    repository.Store
	notifier *RunNotifier // optional
	logger   *zap.Logger
}

func NewMetricsService(store repository.Store, notifier *RunNotifier, logger *zap.Logger) *MetricsService {
	return &MetricsService{store: store, notifier: notifier, logger: logger}
}

// ComputeStrainIndex blends bed and ICU occupancy into a 0-100 score, rounded
// to 2 decimal places. When icuOccPct is nil the bed score stands in for the
// ICU score.
func ComputeStrainIndex(bedOccPct float64, icuOccPct *float64) float64 {
	bedScore := bedOccPct * 100
	icuScore := bedScore
	if icuOccPct != nil {
		icuScore = *icuOccPct * 100
	}
	strain := 0.4*bedScore + 0.6*icuScore
	strain = math.Min(100, math.Max(0, strain))
	return math.Round(strain*100) / 100
}

// ComputeMetrics derives metrics for every stored capacity fact. There is no
// row-level reject tier here: capacity facts already passed validation, so any
// error is whole-run fatal.
func (s *MetricsService) ComputeMetrics(ctx context.Context, source string) (*DeriveResult, error) {
	run := &domain.PipelineRun{
		RunID:     uuid.NewString(),
		Source:    source,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Notes:     "Metrics computation from hospital_capacity_daily",
	}
	if err := s.store.Runs().CreateRun(ctx, run); err != nil {
		return nil, err
	}
	s.logger.Info("created pipeline run",
		zap.String("run_id", run.RunID),
		zap.String("source", source),
	)

	result, err := s.derive(ctx, run)
	if err != nil {
		runsTotal.WithLabelValues(domain.RunStatusFailed).Inc()
		s.logger.Error("metrics derivation failed", zap.String("run_id", run.RunID), zap.Error(err))
		if markErr := s.store.Runs().MarkFailed(ctx, run.RunID, fmt.Sprintf("Error: %v", err), time.Now().UTC()); markErr != nil {
			s.logger.Error("failed to mark run failed", zap.String("run_id", run.RunID), zap.Error(markErr))
		}
		s.publishRun(ctx, run.RunID)
		return nil, &RunError{RunID: run.RunID, Err: err}
	}

	runsTotal.WithLabelValues(domain.RunStatusSuccess).Inc()
	s.logger.Info("metrics derivation completed",
		zap.String("run_id", run.RunID),
		zap.Int("rows_loaded", result.RowsLoaded),
	)
	s.publishRun(ctx, run.RunID)
	return result, nil
}

func (s *MetricsService) derive(ctx context.Context, run *domain.PipelineRun) (*DeriveResult, error) {
	capacityFacts, err := s.store.Capacity().ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rowsIn := len(capacityFacts)
	if err := s.store.Runs().SetRowsIn(ctx, run.RunID, rowsIn); err != nil {
		return nil, err
	}

	metricsFacts := make([]domain.MetricsFact, 0, len(capacityFacts))
	for _, capacity := range capacityFacts {
		bedOccPct := 0.0
		if capacity.TotalBeds > 0 {
			bedOccPct = float64(capacity.OccupiedBeds) / float64(capacity.TotalBeds)
		}
		var icuOccPct *float64
		if capacity.ICUBeds != nil && capacity.ICUOccupied != nil && *capacity.ICUBeds > 0 {
			v := float64(*capacity.ICUOccupied) / float64(*capacity.ICUBeds)
			icuOccPct = &v
		}
		metricsFacts = append(metricsFacts, domain.MetricsFact{
			ID:          uuid.NewString(),
			Date:        capacity.Date,
			RegionID:    capacity.RegionID,
			BedOccPct:   bedOccPct,
			ICUOccPct:   icuOccPct,
			StrainIndex: ComputeStrainIndex(bedOccPct, icuOccPct),
			SourceRunID: run.RunID,
		})
	}

	err = s.store.InTransaction(ctx, func(tx repository.Store) error {
		if len(metricsFacts) > 0 {
			if err := tx.Metrics().UpsertBatch(ctx, metricsFacts); err != nil {
				return err
			}
		}
		return tx.Runs().MarkSuccess(ctx, run.RunID, rowsIn, len(metricsFacts), 0, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	return &DeriveResult{RunID: run.RunID, RowsIn: rowsIn, RowsLoaded: len(metricsFacts)}, nil
}

func (s *MetricsService) publishRun(ctx context.Context, runID string) {
	if s.notifier == nil {
		return
	}
	run, err := s.store.Runs().GetRun(ctx, runID)
	if err != nil || run == nil {
		s.logger.Warn("failed to load run for notification", zap.String("run_id", runID), zap.Error(err))
		return
	}
	s.notifier.PublishRunSummary(ctx, run)
}
