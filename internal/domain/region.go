package domain

import "time"

// Region is a geographic reporting region, created lazily the first time its
// name appears in an extract. Immutable once created; name is unique.
type Region struct {
	RegionID   string    `json:"region_id"` // UUID
	Name       string    `json:"name"`
	Population *int      `json:"population"`
	CreatedAt  time.Time `json:"created_at"`
}
