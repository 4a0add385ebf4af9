package service

import (
	"fmt"

	"straintrack-data/internal/domain"
)

// ValidateRow decides accept/reject for one mapped capacity row. The first
// failing check wins and its reason string is deterministic. The function is
// total: unparsable values arrive as nil typed fields with a non-empty raw
// value and reject as "invalid <field>", distinct from "<field> is required"
// for values that are absent altogether.
func ValidateRow(row *domain.CapacityRow) (bool, string) {
	if row.DateRaw == "" {
		return false, "date is required"
	}
	if row.Date == nil {
		return false, fmt.Sprintf("invalid date: %s", row.DateRaw)
	}
	if row.RegionRaw == "" {
		return false, "region is required"
	}
	if row.TotalBedsRaw == "" {
		return false, "total_beds is required"
	}
	if row.TotalBeds == nil {
		return false, fmt.Sprintf("invalid total_beds: %s", row.TotalBedsRaw)
	}
	if row.OccupiedBedsRaw == "" {
		return false, "occupied_beds is required"
	}
	if row.OccupiedBeds == nil {
		return false, fmt.Sprintf("invalid occupied_beds: %s", row.OccupiedBedsRaw)
	}

	if *row.TotalBeds < 0 {
		return false, "total_beds cannot be negative"
	}
	if *row.OccupiedBeds < 0 {
		return false, "occupied_beds cannot be negative"
	}
	if *row.OccupiedBeds > *row.TotalBeds {
		return false, "occupied_beds cannot exceed total_beds"
	}

	if row.ICUBedsRaw != "" {
		if row.ICUBeds == nil {
			return false, fmt.Sprintf("invalid icu_beds: %s", row.ICUBedsRaw)
		}
		if *row.ICUBeds < 0 {
			return false, "icu_beds cannot be negative"
		}
		if row.ICUOccupiedRaw != "" {
			if row.ICUOccupied == nil {
				return false, fmt.Sprintf("invalid icu_occupied: %s", row.ICUOccupiedRaw)
			}
			if *row.ICUOccupied < 0 {
				return false, "icu_occupied cannot be negative"
			}
			if *row.ICUOccupied > *row.ICUBeds {
				return false, "icu_occupied cannot exceed icu_beds"
			}
		}
	}

	return true, ""
}
