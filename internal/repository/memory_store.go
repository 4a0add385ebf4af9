package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"straintrack-data/internal/domain"
)

// MemoryStore is an in-memory Store for tests and DB-less development runs.
// It mirrors the Postgres semantics that matter to callers: unique region
// names, natural-key replacement on both fact tables, and single-transition
// run lifecycle. InTransaction applies the callback directly; it exists so
// orchestration code is exercised unchanged, not to provide real rollback.
type MemoryStore struct {
	mu sync.RWMutex

	runs          map[string]*domain.PipelineRun
	regionsByName map[string]*domain.Region
	capacity      map[string]*domain.CapacityFact // dateKey|regionID
	metrics       map[string]*domain.MetricsFact  // dateKey|regionID
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:          map[string]*domain.PipelineRun{},
		regionsByName: map[string]*domain.Region{},
		capacity:      map[string]*domain.CapacityFact{},
		metrics:       map[string]*domain.MetricsFact{},
	}
}

func (s *MemoryStore) Runs() RunsRepo         { return (*memoryRunsRepo)(s) }
func (s *MemoryStore) Regions() RegionsRepo   { return (*memoryRegionsRepo)(s) }
func (s *MemoryStore) Capacity() CapacityRepo { return (*memoryCapacityRepo)(s) }
func (s *MemoryStore) Metrics() MetricsRepo   { return (*memoryMetricsRepo)(s) }

func (s *MemoryStore) InTransaction(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

func factKey(date time.Time, regionID string) string {
	return date.Format("2006-01-02") + "|" + regionID
}

// ---- runs ----

type memoryRunsRepo MemoryStore

func (r *memoryRunsRepo) CreateRun(_ context.Context, run *domain.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.RunID] = &cp
	return nil
}

func (r *memoryRunsRepo) SetRowsIn(_ context.Context, runID string, rowsIn int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[runID]; ok {
		run.RowsIn = rowsIn
	}
	return nil
}

func (r *memoryRunsRepo) MarkSuccess(_ context.Context, runID string, rowsIn, rowsLoaded, rowsRejected int, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok || run.Status != domain.RunStatusRunning {
		return errNotRunning(runID)
	}
	run.Status = domain.RunStatusSuccess
	run.RowsIn = rowsIn
	run.RowsLoaded = rowsLoaded
	run.RowsRejected = rowsRejected
	run.EndedAt = &endedAt
	return nil
}

func (r *memoryRunsRepo) MarkFailed(_ context.Context, runID string, notes string, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok || run.Status != domain.RunStatusRunning {
		return errNotRunning(runID)
	}
	run.Status = domain.RunStatusFailed
	run.Notes = notes
	run.EndedAt = &endedAt
	return nil
}

func (r *memoryRunsRepo) GetRun(_ context.Context, runID string) (*domain.PipelineRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (r *memoryRunsRepo) ListRuns(_ context.Context, limit int) ([]*domain.PipelineRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	runs := make([]*domain.PipelineRun, 0, len(r.runs))
	for _, run := range r.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ---- regions ----

type memoryRegionsRepo MemoryStore

func (r *memoryRegionsRepo) GetRegionByName(_ context.Context, name string) (*domain.Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	region, ok := r.regionsByName[name]
	if !ok {
		return nil, nil
	}
	cp := *region
	return &cp, nil
}

func (r *memoryRegionsRepo) CreateRegion(_ context.Context, region *domain.Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.regionsByName[region.Name]; exists {
		return ErrDuplicateRegion
	}
	cp := *region
	r.regionsByName[region.Name] = &cp
	return nil
}

// regionName resolves a region id back to its name (read projections).
func (s *MemoryStore) regionName(regionID string) string {
	for _, region := range s.regionsByName {
		if region.RegionID == regionID {
			return region.Name
		}
	}
	return ""
}

// ---- capacity ----

type memoryCapacityRepo MemoryStore

func (r *memoryCapacityRepo) UpsertBatch(_ context.Context, facts []domain.CapacityFact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range facts {
		key := factKey(f.Date, f.RegionID)
		if existing, ok := r.capacity[key]; ok {
			existing.TotalBeds = f.TotalBeds
			existing.OccupiedBeds = f.OccupiedBeds
			existing.ICUBeds = f.ICUBeds
			existing.ICUOccupied = f.ICUOccupied
			existing.SourceRunID = f.SourceRunID
			continue
		}
		cp := f
		r.capacity[key] = &cp
	}
	return nil
}

func (r *memoryCapacityRepo) ListAll(_ context.Context) ([]*domain.CapacityFact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	facts := make([]*domain.CapacityFact, 0, len(r.capacity))
	for _, f := range r.capacity {
		cp := *f
		facts = append(facts, &cp)
	}
	sort.Slice(facts, func(i, j int) bool {
		if !facts[i].Date.Equal(facts[j].Date) {
			return facts[i].Date.Before(facts[j].Date)
		}
		return facts[i].RegionID < facts[j].RegionID
	})
	return facts, nil
}

func (r *memoryCapacityRepo) ListByDate(_ context.Context, date time.Time) ([]*CapacityWithRegion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*CapacityWithRegion
	for _, f := range r.capacity {
		if f.Date.Format("2006-01-02") != date.Format("2006-01-02") {
			continue
		}
		result = append(result, &CapacityWithRegion{
			CapacityFact: *f,
			RegionName:   (*MemoryStore)(r).regionName(f.RegionID),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RegionName < result[j].RegionName })
	return result, nil
}

func (r *memoryCapacityRepo) LatestDate(_ context.Context) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *time.Time
	for _, f := range r.capacity {
		if latest == nil || f.Date.After(*latest) {
			d := f.Date
			latest = &d
		}
	}
	return latest, nil
}

// ---- metrics ----

type memoryMetricsRepo MemoryStore

func (r *memoryMetricsRepo) UpsertBatch(_ context.Context, facts []domain.MetricsFact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range facts {
		key := factKey(f.Date, f.RegionID)
		if existing, ok := r.metrics[key]; ok {
			existing.BedOccPct = f.BedOccPct
			existing.ICUOccPct = f.ICUOccPct
			existing.StrainIndex = f.StrainIndex
			existing.SourceRunID = f.SourceRunID
			continue
		}
		cp := f
		r.metrics[key] = &cp
	}
	return nil
}

func (r *memoryMetricsRepo) ListByDate(_ context.Context, date time.Time) ([]*MetricsWithRegion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*MetricsWithRegion
	for _, f := range r.metrics {
		if f.Date.Format("2006-01-02") != date.Format("2006-01-02") {
			continue
		}
		result = append(result, &MetricsWithRegion{
			MetricsFact: *f,
			RegionName:  (*MemoryStore)(r).regionName(f.RegionID),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RegionName < result[j].RegionName })
	return result, nil
}

func (r *memoryMetricsRepo) LatestDate(_ context.Context) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *time.Time
	for _, f := range r.metrics {
		if latest == nil || f.Date.After(*latest) {
			d := f.Date
			latest = &d
		}
	}
	return latest, nil
}

func (r *memoryMetricsRepo) CompareWithPreviousDay(_ context.Context, date time.Time) ([]*StrainComparison, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prevDate := date.AddDate(0, 0, -1)
	var result []*StrainComparison
	for _, f := range r.metrics {
		if f.Date.Format("2006-01-02") != date.Format("2006-01-02") {
			continue
		}
		cmp := &StrainComparison{
			Region:      (*MemoryStore)(r).regionName(f.RegionID),
			StrainIndex: f.StrainIndex,
		}
		if prev, ok := r.metrics[factKey(prevDate, f.RegionID)]; ok {
			v := prev.StrainIndex
			cmp.PrevStrainIndex = &v
		}
		result = append(result, cmp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Region < result[j].Region })
	return result, nil
}

func (r *memoryMetricsRepo) AvailableDates(ctx context.Context) (*time.Time, *time.Time, int, error) {
	dates, err := r.ListDates(ctx)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(dates) == 0 {
		return nil, nil, 0, nil
	}
	minDate, maxDate := dates[0], dates[len(dates)-1]
	return &minDate, &maxDate, len(dates), nil
}

func (r *memoryMetricsRepo) ListDates(_ context.Context) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]time.Time{}
	for _, f := range r.metrics {
		seen[f.Date.Format("2006-01-02")] = f.Date
	}
	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (r *memoryMetricsRepo) Coverage(ctx context.Context, minRows int) ([]DateCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[string]*DateCount{}
	for _, f := range r.metrics {
		key := f.Date.Format("2006-01-02")
		if dc, ok := counts[key]; ok {
			dc.Rows++
			continue
		}
		counts[key] = &DateCount{Date: f.Date, Rows: 1}
	}
	var result []DateCount
	for _, dc := range counts {
		if dc.Rows >= minRows {
			result = append(result, *dc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func errNotRunning(runID string) error {
	return &notRunningError{runID: runID}
}

type notRunningError struct{ runID string }

func (e *notRunningError) Error() string {
	return "run " + e.runID + " is not in running state"
}
