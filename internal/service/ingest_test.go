package service

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"straintrack-data/internal/domain"
	"straintrack-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIngest(t *testing.T) (*IngestService, *repository.MemoryStore, string) {
	t.Helper()
	store := repository.NewMemoryStore()
	rejectsDir := t.TempDir()
	svc := NewIngestService(store, rejectsDir, nil, zap.NewNop())
	return svc, store, rejectsDir
}

func TestIngestFileAllAccepted(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader+
		"2024-01-15,CA,1000,850,100,92\n"+
		"2024-01-15,NY,800,600,80,70\n")

	result, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	require.Equal(t, 2, result.RowsIn)
	require.Equal(t, 2, result.RowsLoaded)
	require.Equal(t, 0, result.RowsRejected)
	require.Empty(t, result.RejectsPath)

	run, err := store.Runs().GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, domain.RunStatusSuccess, run.Status)
	require.Equal(t, "hhs_capacity", run.Source)
	require.Equal(t, 2, run.RowsIn)
	require.Equal(t, 2, run.RowsLoaded)
	require.Equal(t, 0, run.RowsRejected)
	require.NotNil(t, run.EndedAt)

	facts, err := store.Capacity().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 2)
	for _, f := range facts {
		require.Equal(t, result.RunID, f.SourceRunID)
	}
}

func TestIngestFileMixedRows(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader+
		"2024-01-15,CA,1000,850,100,92\n"+
		",NY,800,600,80,70\n"+
		"2024-01-15,TX,500,750,50,40\n")

	result, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	require.Equal(t, 3, result.RowsIn)
	require.Equal(t, 1, result.RowsLoaded)
	require.Equal(t, 2, result.RowsRejected)
	require.Equal(t, result.RowsIn, result.RowsLoaded+result.RowsRejected)

	facts, err := store.Capacity().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 1)

	run, err := store.Runs().GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusSuccess, run.Status)
	require.Equal(t, 2, run.RowsRejected)
}

func TestIngestFileRejectArtifact(t *testing.T) {
	svc, _, rejectsDir := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader+
		"2024-01-15,CA,1000,850,100,92\n"+
		"not-a-date,NY,800,600,80,70\n")

	result, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(rejectsDir, "capacity_rejects_"+result.RunID+".csv"), result.RejectsPath)

	f, err := os.Open(result.RejectsPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header := records[0]
	require.Equal(t, append(append([]string{}, RequiredSourceColumns...), "_reject_reason", "_original_index"), header)

	row := records[1]
	require.Equal(t, "not-a-date", row[0])
	require.Equal(t, "NY", row[1])
	require.Equal(t, "invalid date: not-a-date", row[6])
	require.Equal(t, "1", row[7])
}

// Ingesting the same file twice replaces facts in place instead of duplicating
// them, and the replacement carries the newer run id.
func TestIngestFileIdempotent(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader+
		"2024-01-15,CA,1000,850,100,92\n"+
		"2024-01-15,NY,800,600,80,70\n")

	first, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	second, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	require.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, first.RowsLoaded, second.RowsLoaded)

	facts, err := store.Capacity().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 2)
	for _, f := range facts {
		require.Equal(t, second.RunID, f.SourceRunID)
	}
}

// A corrected re-submission overwrites the stored values for the same
// (date, region) key.
func TestIngestFileReplacesOnNaturalKey(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	original := writeTempCSV(t, sampleHeader+"2024-01-15,CA,1000,850,100,92\n")
	corrected := writeTempCSV(t, sampleHeader+"2024-01-15,CA,1000,870,100,95\n")

	_, err := svc.IngestFile(context.Background(), original, "hhs_capacity")
	require.NoError(t, err)
	_, err = svc.IngestFile(context.Background(), corrected, "hhs_capacity")
	require.NoError(t, err)

	facts, err := store.Capacity().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, 870, facts[0].OccupiedBeds)
	require.Equal(t, 95, *facts[0].ICUOccupied)
}

// Duplicate (date, region) rows within one file: last occurrence wins.
func TestIngestFileWithinFileDuplicates(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader+
		"2024-01-15,CA,1000,850,100,92\n"+
		"2024-01-15,CA,1000,900,100,95\n")

	result, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	require.Equal(t, 2, result.RowsLoaded)

	facts, err := store.Capacity().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, 900, facts[0].OccupiedBeds)
}

// Region names resolve to one stable id across runs rather than accreting
// duplicate region rows.
func TestIngestFileRegionResolutionStable(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader+"2024-01-15,CA,1000,850,100,92\n")
	later := writeTempCSV(t, sampleHeader+"2024-01-16,CA,1000,820,100,90\n")

	_, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	_, err = svc.IngestFile(context.Background(), later, "hhs_capacity")
	require.NoError(t, err)

	region, err := store.Regions().GetRegionByName(context.Background(), "CA")
	require.NoError(t, err)
	require.NotNil(t, region)

	facts, err := store.Capacity().ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, facts, 2)
	for _, f := range facts {
		require.Equal(t, region.RegionID, f.RegionID)
	}
}

func TestIngestFileUnreadableInputFailsRun(t *testing.T) {
	svc, store, _ := newTestIngest(t)

	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "hhs_capacity")
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.NotEmpty(t, runErr.RunID)

	run, getErr := store.Runs().GetRun(context.Background(), runErr.RunID)
	require.NoError(t, getErr)
	require.NotNil(t, run)
	require.Equal(t, domain.RunStatusFailed, run.Status)
	require.Contains(t, run.Notes, "Error:")
	require.NotNil(t, run.EndedAt)
}

func TestIngestFileMissingColumnsFailsRun(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, "date,state\n2024-01-15,CA\n")

	_, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	run, getErr := store.Runs().GetRun(context.Background(), runErr.RunID)
	require.NoError(t, getErr)
	require.Equal(t, domain.RunStatusFailed, run.Status)
	require.Contains(t, run.Notes, "missing required columns")

	// No facts land from a failed run.
	facts, listErr := store.Capacity().ListAll(context.Background())
	require.NoError(t, listErr)
	require.Empty(t, facts)
}

func TestIngestFileEmptyBodyStillSucceeds(t *testing.T) {
	svc, store, _ := newTestIngest(t)
	path := writeTempCSV(t, sampleHeader)

	result, err := svc.IngestFile(context.Background(), path, "hhs_capacity")
	require.NoError(t, err)
	require.Equal(t, 0, result.RowsIn)
	require.Equal(t, 0, result.RowsLoaded)
	require.Equal(t, 0, result.RowsRejected)

	run, err := store.Runs().GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusSuccess, run.Status)
}

func TestDedupeFactsKeepsLastOccurrence(t *testing.T) {
	date := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	facts := []domain.CapacityFact{
		{ID: "a", Date: date, RegionID: "r1", OccupiedBeds: 850},
		{ID: "b", Date: date, RegionID: "r2", OccupiedBeds: 600},
		{ID: "c", Date: date, RegionID: "r1", OccupiedBeds: 900},
	}

	deduped := dedupeFacts(facts)
	require.Len(t, deduped, 2)
	require.Equal(t, "c", deduped[0].ID)
	require.Equal(t, 900, deduped[0].OccupiedBeds)
	require.Equal(t, "b", deduped[1].ID)
}
