package domain

import "time"

// MetricsFact is one derived strain measurement per (Date, RegionID), with the
// same replace-on-conflict semantics as CapacityFact.
type MetricsFact struct {
	ID          string    `json:"id"`   // UUID
	Date        time.Time `json:"date"` // date only, UTC midnight
	RegionID    string    `json:"region_id"`
	BedOccPct   float64   `json:"bed_occ_pct"`
	ICUOccPct   *float64  `json:"icu_occ_pct"` // nil when ICU fields absent or icu_beds == 0
	StrainIndex float64   `json:"strain_index"`
	SourceRunID string    `json:"source_run_id"`
	CreatedAt   time.Time `json:"created_at"`
}
