// Package model defines the core data types and structures used throughout the seqsearch job system.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of a persisted search job.
// Completed and failed searches are never stored as job states; the job row
// is deleted in the same transaction that writes the terminal result row.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusRunning indicates a job has been admitted and may still produce a result.
	JobStatusRunning JobStatus = "running"
	// JobStatusCancelled indicates a job was stopped by an explicit cancel request.
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusTimedOut indicates a job was stopped because its deadline passed.
	JobStatusTimedOut JobStatus = "timed_out"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusRunning || s == JobStatusCancelled || s == JobStatusTimedOut
}

// Terminal returns true if the JobStatus marks a job that will never produce a result.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCancelled || s == JobStatusTimedOut
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus to allow env parsing.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	js := JobStatus(v)
	if js.Valid() {
		*s = js
		return nil
	}
	return fmt.Errorf("invalid JobStatus: %q", v)
}

// Job represents a search job in the system with all its metadata and status information.
type Job struct {
	ID           string          `json:"id"                      db:"id"`
	Status       JobStatus       `json:"status"                  db:"status"`
	Request      json.RawMessage `json:"request"                 db:"request"`
	WorkerHandle *string         `json:"worker_handle,omitempty" db:"worker_handle"`
	SubmittedAt  time.Time       `json:"submitted_at"            db:"submitted_at"`
	Deadline     time.Time       `json:"deadline"                db:"deadline"`
	UpdatedAt    time.Time       `json:"updated_at"              db:"updated_at"`
}

// Expired returns true if the job's execution deadline has passed.
func (j *Job) Expired(now time.Time) bool {
	return now.After(j.Deadline)
}

// SearchStats represents the admission load reported by the stats endpoint.
type SearchStats struct {
	Running   int `json:"running"   db:"running"`
	Capacity  int `json:"capacity"`
	Available int `json:"available"`
}
