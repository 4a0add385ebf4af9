package domain

import "time"

// Pipeline run statuses. A run is created as running and transitions exactly
// once, to success or failed. There is no resume or retry-in-place.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// PipelineRun is the provenance record for one ingestion or derivation attempt.
type PipelineRun struct {
	RunID        string     `json:"run_id"`    // UUID
	Source       string     `json:"source"`    // source label, e.g. "hhs_capacity"
	Status       string     `json:"status"`    // running/success/failed
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	RowsIn       int        `json:"rows_in"`
	RowsLoaded   int        `json:"rows_loaded"`
	RowsRejected int        `json:"rows_rejected"`
	Notes        string     `json:"notes"`
}
