package service

import "fmt"

// IngestResult summarizes one successful ingestion run.
type IngestResult struct {
	RunID        string `json:"run_id"`
	RowsIn       int    `json:"rows_in"`
	RowsLoaded   int    `json:"rows_loaded"`
	RowsRejected int    `json:"rows_rejected"`
	RejectsPath  string `json:"rejects_path,omitempty"`
}

// DeriveResult summarizes one successful metrics derivation run.
type DeriveResult struct {
	RunID      string `json:"run_id"`
	RowsIn     int    `json:"rows_in"`
	RowsLoaded int    `json:"rows_loaded"`
}

// RunError is the run-level failure tier: the whole attempt was aborted, fact
// writes were rolled back, and the pipeline run row was marked failed with the
// cause. Row-level rejects are not errors; they live in IngestResult counters
// and the reject artifact.
type RunError struct {
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("run failed: %v", e.Err)
	}
	return fmt.Sprintf("run %s failed: %v", e.RunID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
