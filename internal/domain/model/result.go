//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"time"
)

// SearchResult represents the persisted terminal outcome of a search job.
// Exactly one of Payload or Error is set. The row is deleted when consumed.
type SearchResult struct {
	JobID       string          `json:"job_id"            db:"job_id"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"payload"`
	Error       *string         `json:"error,omitempty"   db:"error"`
	CompletedAt time.Time       `json:"completed_at"      db:"completed_at"`
}

// Failed returns true if the result records an execution failure.
func (r *SearchResult) Failed() bool {
	return r.Error != nil
}

// SearchState is the externally visible state of a search. It covers states
// that exist only as result rows (completed) on top of the stored job states.
type SearchState string

const (
	// SearchStateRunning indicates a live job row exists.
	SearchStateRunning SearchState = "running"
	// SearchStateCompleted indicates a result row is waiting to be consumed.
	SearchStateCompleted SearchState = "completed"
	// SearchStateCancelled indicates the job was cancelled before finishing.
	SearchStateCancelled SearchState = "cancelled"
	// SearchStateTimedOut indicates the job exceeded its deadline.
	SearchStateTimedOut SearchState = "timed_out"
)

// StateForJobStatus maps a stored job status to its externally visible state.
func StateForJobStatus(status JobStatus) SearchState {
	switch status {
	case JobStatusCancelled:
		return SearchStateCancelled
	case JobStatusTimedOut:
		return SearchStateTimedOut
	default:
		return SearchStateRunning
	}
}

// SearchStatusResponse represents the non-consuming status view of a search.
type SearchStatusResponse struct {
	JobID       string      `json:"job_id"`
	Status      SearchState `json:"status"`
	SubmittedAt *time.Time  `json:"submitted_at,omitempty"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
