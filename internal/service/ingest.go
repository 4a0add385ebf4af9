package service

import (
	"context"
	"fmt"
	"time"

	"straintrack-data/internal/domain"
	"straintrack-data/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestService runs the capacity ingestion pipeline: read, map, validate,
// resolve regions, upsert facts, finalize the run record.
type IngestService struct {
	store      repository.Store
	rejectsDir string
	notifier   *RunNotifier // optional
	logger     *zap.Logger
}

func NewIngestService(store repository.Store, rejectsDir string, notifier *RunNotifier, logger *zap.Logger) *IngestService {
	return &IngestService{
		store:      store,
		rejectsDir: rejectsDir,
		notifier:   notifier,
		logger:     logger,
	}
}

// IngestFile runs the whole pipeline for one local input file. Row-level
// validation failures go to the reject artifact and the counters; anything
// else aborts the attempt, rolls back the fact writes, marks the run failed,
// and returns a *RunError.
func (s *IngestService) IngestFile(ctx context.Context, inputPath, source string) (*IngestResult, error) {
	run := &domain.PipelineRun{
		RunID:     uuid.NewString(),
		Source:    source,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Notes:     "Input file: " + inputPath,
	}
	// Committed before any further work so a crash mid-run still leaves an
	// auditable running record.
	if err := s.store.Runs().CreateRun(ctx, run); err != nil {
		return nil, err
	}
	s.logger.Info("created pipeline run",
		zap.String("run_id", run.RunID),
		zap.String("source", source),
		zap.String("input", inputPath),
	)

	result, err := s.load(ctx, run, inputPath)
	if err != nil {
		s.finalizeFailed(ctx, run.RunID, err)
		return nil, &RunError{RunID: run.RunID, Err: err}
	}

	runsTotal.WithLabelValues(domain.RunStatusSuccess).Inc()
	rowsLoadedTotal.Add(float64(result.RowsLoaded))
	rowsRejectedTotal.Add(float64(result.RowsRejected))
	s.logger.Info("ingestion completed",
		zap.String("run_id", run.RunID),
		zap.Int("rows_in", result.RowsIn),
		zap.Int("rows_loaded", result.RowsLoaded),
		zap.Int("rows_rejected", result.RowsRejected),
	)
	s.publishRun(ctx, run.RunID)
	return result, nil
}

func (s *IngestService) load(ctx context.Context, run *domain.PipelineRun, inputPath string) (*IngestResult, error) {
	rows, err := ReadCapacityFile(inputPath)
	if err != nil {
		return nil, err
	}
	rowsIn := len(rows)
	if err := s.store.Runs().SetRowsIn(ctx, run.RunID, rowsIn); err != nil {
		return nil, err
	}

	var accepted []*domain.CapacityRow
	var rejected []*RejectedRow
	for _, row := range rows {
		if ok, reason := ValidateRow(row); ok {
			accepted = append(accepted, row)
		} else {
			rejected = append(rejected, &RejectedRow{Row: row, Reason: reason})
		}
	}

	rejectsPath := ""
	if len(rejected) > 0 {
		rejectsPath, err = WriteRejects(s.rejectsDir, run.RunID, rejected)
		if err != nil {
			return nil, err
		}
		s.logger.Info("wrote reject artifact",
			zap.String("run_id", run.RunID),
			zap.Int("rows_rejected", len(rejected)),
			zap.String("path", rejectsPath),
		)
	}

	// Region resolution, fact upserts, and the success transition share one
	// transaction: a failure anywhere rolls all of it back.
	err = s.store.InTransaction(ctx, func(tx repository.Store) error {
		resolver := newRegionResolver(tx.Regions())
		facts := make([]domain.CapacityFact, 0, len(accepted))
		for _, row := range accepted {
			regionID, err := resolver.Resolve(ctx, row.RegionRaw)
			if err != nil {
				return err
			}
			facts = append(facts, domain.CapacityFact{
				ID:           uuid.NewString(),
				Date:         *row.Date,
				RegionID:     regionID,
				TotalBeds:    *row.TotalBeds,
				OccupiedBeds: *row.OccupiedBeds,
				ICUBeds:      row.ICUBeds,
				ICUOccupied:  row.ICUOccupied,
				SourceRunID:  run.RunID,
			})
		}
		if len(facts) > 0 {
			if err := tx.Capacity().UpsertBatch(ctx, dedupeFacts(facts)); err != nil {
				return err
			}
		}
		return tx.Runs().MarkSuccess(ctx, run.RunID, rowsIn, len(accepted), len(rejected), time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		RunID:        run.RunID,
		RowsIn:       rowsIn,
		RowsLoaded:   len(accepted),
		RowsRejected: len(rejected),
		RejectsPath:  rejectsPath,
	}, nil
}

// dedupeFacts keeps the last occurrence per (date, region): a natural key
// appearing twice in a single INSERT ... ON CONFLICT statement would error.
func dedupeFacts(facts []domain.CapacityFact) []domain.CapacityFact {
	index := map[string]int{}
	deduped := make([]domain.CapacityFact, 0, len(facts))
	for _, f := range facts {
		key := f.Date.Format("2006-01-02") + "|" + f.RegionID
		if i, ok := index[key]; ok {
			deduped[i] = f
			continue
		}
		index[key] = len(deduped)
		deduped = append(deduped, f)
	}
	return deduped
}

// finalizeFailed records the failed transition in a fresh statement after the
// load transaction rolled back. This is the only deliberate second write path.
func (s *IngestService) finalizeFailed(ctx context.Context, runID string, cause error) {
	runsTotal.WithLabelValues(domain.RunStatusFailed).Inc()
	s.logger.Error("ingestion failed", zap.String("run_id", runID), zap.Error(cause))
	if err := s.store.Runs().MarkFailed(ctx, runID, fmt.Sprintf("Error: %v", cause), time.Now().UTC()); err != nil {
		s.logger.Error("failed to mark run failed", zap.String("run_id", runID), zap.Error(err))
	}
	s.publishRun(ctx, runID)
}

// publishRun sends the finalized run summary to the notification stream.
// Notification failures are logged, never surfaced: the run outcome is already
// durable in pipeline_runs.
func (s *IngestService) publishRun(ctx context.Context, runID string) {
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
