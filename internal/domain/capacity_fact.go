package domain

import "time"

// CapacityFact is one loaded hospital capacity measurement. Natural key is
// (Date, RegionID); re-ingesting the same key replaces every value column and
// re-points SourceRunID at the writing run.
type CapacityFact struct {
	ID           string    `json:"id"`   // UUID
	Date         time.Time `json:"date"` // date only, UTC midnight
	RegionID     string    `json:"region_id"`
	TotalBeds    int       `json:"total_beds"`
	OccupiedBeds int       `json:"occupied_beds"`
	ICUBeds      *int      `json:"icu_beds"`
	ICUOccupied  *int      `json:"icu_occupied"`
	SourceRunID  string    `json:"source_run_id"`
	CreatedAt    time.Time `json:"created_at"`
}
