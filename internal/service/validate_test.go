package service

import (
	"testing"
	"time"

	"straintrack-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// validRow returns a row that passes every check; tests break one field at a
// time from here.
func validRow() *domain.CapacityRow {
	return &domain.CapacityRow{
		Index:           0,
		DateRaw:         "2024-01-15",
		RegionRaw:       "CA",
		TotalBedsRaw:    "1000",
		OccupiedBedsRaw: "850",
		ICUBedsRaw:      "100",
		ICUOccupiedRaw:  "92",
		Date:            datePtr(2024, time.January, 15),
		TotalBeds:       intPtr(1000),
		OccupiedBeds:    intPtr(850),
		ICUBeds:         intPtr(100),
		ICUOccupied:     intPtr(92),
	}
}

func TestValidateRowAccepts(t *testing.T) {
	ok, reason := ValidateRow(validRow())
	require.True(t, ok)
	require.Empty(t, reason)
}

func TestValidateRowAcceptsWithoutICU(t *testing.T) {
	row := validRow()
	row.ICUBedsRaw, row.ICUOccupiedRaw = "", ""
	row.ICUBeds, row.ICUOccupied = nil, nil

	ok, reason := ValidateRow(row)
	require.True(t, ok)
	require.Empty(t, reason)
}

func TestValidateRowRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CapacityRow)
		reason string
	}{
		{
			name: "missing date",
			mutate: func(r *domain.CapacityRow) {
				r.DateRaw = ""
				r.Date = nil
			},
			reason: "date is required",
		},
		{
			name: "missing region",
			mutate: func(r *domain.CapacityRow) {
				r.RegionRaw = ""
			},
			reason: "region is required",
		},
		{
			name: "missing total_beds",
			mutate: func(r *domain.CapacityRow) {
				r.TotalBedsRaw = ""
				r.TotalBeds = nil
			},
			reason: "total_beds is required",
		},
		{
			name: "missing occupied_beds",
			mutate: func(r *domain.CapacityRow) {
				r.OccupiedBedsRaw = ""
				r.OccupiedBeds = nil
			},
			reason: "occupied_beds is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			ok, reason := ValidateRow(row)
			require.False(t, ok)
			require.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidateRowInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CapacityRow)
		reason string
	}{
		{
			name: "unparsable date",
			mutate: func(r *domain.CapacityRow) {
				r.DateRaw = "not-a-date"
				r.Date = nil
			},
			reason: "invalid date: not-a-date",
		},
		{
			name: "unparsable total_beds",
			mutate: func(r *domain.CapacityRow) {
				r.TotalBedsRaw = "abc"
				r.TotalBeds = nil
			},
			reason: "invalid total_beds: abc",
		},
		{
			name: "unparsable occupied_beds",
			mutate: func(r *domain.CapacityRow) {
				r.OccupiedBedsRaw = "??"
				r.OccupiedBeds = nil
			},
			reason: "invalid occupied_beds: ??",
		},
		{
			name: "unparsable icu_beds",
			mutate: func(r *domain.CapacityRow) {
				r.ICUBedsRaw = "x"
				r.ICUBeds = nil
			},
			reason: "invalid icu_beds: x",
		},
		{
			name: "unparsable icu_occupied",
			mutate: func(r *domain.CapacityRow) {
				r.ICUOccupiedRaw = "y"
				r.ICUOccupied = nil
			},
			reason: "invalid icu_occupied: y",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			ok, reason := ValidateRow(row)
			require.False(t, ok)
			require.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidateRowBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CapacityRow)
		reason string
	}{
		{
			name: "negative total_beds",
			mutate: func(r *domain.CapacityRow) {
				r.TotalBedsRaw = "-5"
				r.TotalBeds = intPtr(-5)
			},
			reason: "total_beds cannot be negative",
		},
		{
			name: "negative occupied_beds",
			mutate: func(r *domain.CapacityRow) {
				r.OccupiedBedsRaw = "-1"
				r.OccupiedBeds = intPtr(-1)
			},
			reason: "occupied_beds cannot be negative",
		},
		{
			name: "occupied exceeds total",
			mutate: func(r *domain.CapacityRow) {
				r.OccupiedBedsRaw = "1001"
				r.OccupiedBeds = intPtr(1001)
			},
			reason: "occupied_beds cannot exceed total_beds",
		},
		{
			name: "negative icu_beds",
			mutate: func(r *domain.CapacityRow) {
				r.ICUBedsRaw = "-2"
				r.ICUBeds = intPtr(-2)
			},
			reason: "icu_beds cannot be negative",
		},
		{
			name: "negative icu_occupied",
			mutate: func(r *domain.CapacityRow) {
				r.ICUOccupiedRaw = "-3"
				r.ICUOccupied = intPtr(-3)
			},
			reason: "icu_occupied cannot be negative",
		},
		{
			name: "icu_occupied exceeds icu_beds",
			mutate: func(r *domain.CapacityRow) {
				r.ICUOccupiedRaw = "120"
				r.ICUOccupied = intPtr(120)
			},
			reason: "icu_occupied cannot exceed icu_beds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			ok, reason := ValidateRow(row)
			require.False(t, ok)
			require.Equal(t, tt.reason, reason)
		})
	}
}

// The first failing check wins, in field order.
func TestValidateRowFirstFailureWins(t *testing.T) {
	row := validRow()
	row.DateRaw = ""
	row.Date = nil
	row.TotalBedsRaw = "abc"
	row.TotalBeds = nil

	ok, reason := ValidateRow(row)
	require.False(t, ok)
	require.Equal(t, "date is required", reason)
}

// ICU bounds are only checked when both ICU fields are present; a lone
// icu_occupied with no icu_beds passes through.
func TestValidateRowICUOccupiedWithoutICUBeds(t *testing.T) {
	row := validRow()
	row.ICUBedsRaw = ""
	row.ICUBeds = nil

	ok, reason := ValidateRow(row)
	require.True(t, ok)
	require.Empty(t, reason)
}
