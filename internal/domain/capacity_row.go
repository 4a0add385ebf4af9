package domain

import "time"

// CapacityRow is one source row after column mapping, before validation.
// Raw fields keep the original source values verbatim (for the reject
// artifact); typed fields are nil when the raw value is absent or unparsable.
// The validator tells the two cases apart: empty raw means "required" rejects,
// non-empty raw with a nil typed value means "invalid" rejects.
type CapacityRow struct {
	Index int // original position in the source file, 0-based

	DateRaw         string
	RegionRaw       string
	TotalBedsRaw    string
	OccupiedBedsRaw string
	ICUBedsRaw      string
	ICUOccupiedRaw  string

	Date         *time.Time
	TotalBeds    *int
	OccupiedBeds *int
	ICUBeds      *int
	ICUOccupied  *int
}
