package service

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"straintrack-data/internal/domain"

	"github.com/xuri/excelize/v2"
)

// RequiredSourceColumns are the exact HHS extract column names, in canonical
// field order: date, region, total_beds, occupied_beds, icu_beds, icu_occupied.
var RequiredSourceColumns = []string{
	"date",
	"state",
	"inpatient_beds",
	"inpatient_beds_used",
	"total_staffed_adult_icu_beds",
	"staffed_adult_icu_bed_occupancy",
}

// ReadCapacityFile reads a CSV or XLSX capacity extract, verifies the required
// source columns are all present, and maps each data row to the canonical
// field set. A missing required column is a fatal error before any row is
// processed; a malformed value inside a row is not (the row carries it into
// validation instead).
func ReadCapacityFile(path string) ([]*domain.CapacityRow, error) {
	var records [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		records, err = readXLSX(path)
	} else {
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file %s has no header row", path)
	}

	colIndex, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.CapacityRow, 0, len(records)-1)
	for i, record := range records[1:] {
		rows = append(rows, mapRow(i, record, colIndex))
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Source extracts are ragged in the wild; pad short records instead of
	// failing the whole run on one short line.
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read xlsx rows: %w", err)
	}
	return records, nil
}

// mapHeader locates every required source column, failing fatally when any is
// absent (column-mapping contract mismatch, not a per-row reject).
func mapHeader(header []string) (map[string]int, error) {
	colIndex := map[string]int{}
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range RequiredSourceColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return colIndex, nil
}

func mapRow(index int, record []string, colIndex map[string]int) *domain.CapacityRow {
	field := func(col string) string {
		i := colIndex[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := &domain.CapacityRow{
		Index:           index,
		DateRaw:         field("date"),
		RegionRaw:       field("state"),
		TotalBedsRaw:    field("inpatient_beds"),
		OccupiedBedsRaw: field("inpatient_beds_used"),
		ICUBedsRaw:      field("total_staffed_adult_icu_beds"),
		ICUOccupiedRaw:  field("staffed_adult_icu_bed_occupancy"),
	}
	row.Date = parseDate(row.DateRaw)
	row.TotalBeds = parseIntValue(row.TotalBedsRaw)
	row.OccupiedBeds = parseIntValue(row.OccupiedBedsRaw)
	row.ICUBeds = parseIntValue(row.ICUBedsRaw)
	row.ICUOccupied = parseIntValue(row.ICUOccupiedRaw)
	return row
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// parseDate accepts the formats seen across source extracts, normalized to a
// UTC date. Returns nil when the value is absent or unparsable.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// parseIntValue parses an integer count that may be serialized as a float
// ("85.0"), which is how upstream CSV exports render whole numbers.
func parseIntValue(raw string) *int {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}
