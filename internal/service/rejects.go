package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"straintrack-data/internal/domain"
)

// RejectedRow pairs a source row with the validation reason that rejected it.
type RejectedRow struct {
	Row    *domain.CapacityRow
	Reason string
}

// WriteRejects writes the per-run reject artifact: every rejected row's
// original source values plus _reject_reason and _original_index. The file is
// an operator-facing side effect; nothing in the pipeline reads it back.
func WriteRejects(dir, runID string, rejected []*RejectedRow) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create rejects dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("capacity_rejects_%s.csv", runID))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create rejects file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string{}, RequiredSourceColumns...), "_reject_reason", "_original_index")
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write rejects header: %w", err)
	}
	for _, rej := range rejected {
		record := []string{
			rej.Row.DateRaw,
			rej.Row.RegionRaw,
			rej.Row.TotalBedsRaw,
			rej.Row.OccupiedBedsRaw,
			rej.Row.ICUBedsRaw,
			rej.Row.ICUOccupiedRaw,
			rej.Reason,
			strconv.Itoa(rej.Row.Index),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write reject row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush rejects file: %w", err)
	}
	return path, nil
}
