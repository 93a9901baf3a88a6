package core

import (
	"context"
	"time"

	"github.com/seqbase/seqsearch/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobStore defines the interface for search job persistence.
type JobStore interface {
	// TryCreate inserts a new running job row. It returns false when the id
	// already exists so the caller can retry with a fresh identifier.
	TryCreate(ctx context.Context, job *model.Job) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// CountRunning reports committed running rows only; it is the admission
	// dispatcher's view of current load.
	CountRunning(ctx context.Context) (int, error)
	ListRunning(ctx context.Context) ([]*model.Job, error)
	// ListExpired returns running jobs whose deadline passed before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Job, error)
	// AttachWorkerHandle records the handle of the worker executing the job.
	// Returns false when the job is no longer running.
	AttachWorkerHandle(ctx context.Context, jobID, handle string) (bool, error)
	// MarkCancelled and MarkTimedOut flip a still-running job to its terminal
	// status. Both return false without error when the row is already gone or
	// no longer running, so racing finalizers stay no-ops.
	MarkCancelled(ctx context.Context, id string) (bool, error)
	MarkTimedOut(ctx context.Context, id string) (bool, error)
	// Finalize atomically deletes the job row and inserts the result row.
	// Returns false when the job row was already gone, in which case no
	// result is written.
	Finalize(ctx context.Context, params FinalizeParams) (bool, error)
	// ConsumeResult reads and deletes the result row for jobID in one
	// transaction. A missing row maps to NotFound.
	ConsumeResult(ctx context.Context, jobID string) (*model.SearchResult, error)
	// PeekState reports the externally visible state without consuming
	// anything. A missing job and a missing result both map to NotFound.
	PeekState(ctx context.Context, jobID string) (*model.SearchStatusResponse, error)
	Stats(ctx context.Context) (*model.SearchStats, error)
	WaitForCompletion(ctx context.Context) error
}

// FinalizeParams groups parameters for JobStore.Finalize to keep param count ≤3.
// Exactly one of Payload or Error is set.
type FinalizeParams struct {
	JobID   string
	Payload []byte
	Error   *string
}

// PurgeOldResultsParams groups parameters for CollectorStore.PurgeOldResults.
type PurgeOldResultsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// PurgeTerminalJobsParams groups parameters for CollectorStore.PurgeTerminalJobs.
type PurgeTerminalJobsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// CollectorStore defines the interface for retention cleanup operations.
type CollectorStore interface {
	// PurgeOldResults deletes result rows older than MaxAge whether or not
	// they were ever consumed. Processes up to BatchSize rows per call to
	// prevent long locks. Returns the number of rows deleted.
	PurgeOldResults(ctx context.Context, params PurgeOldResultsParams) (int64, error)

	// PurgeTerminalJobs deletes cancelled and timed-out job rows older than
	// MaxAge. Processes up to BatchSize rows per call. Returns the number of
	// rows deleted.
	PurgeTerminalJobs(ctx context.Context, params PurgeTerminalJobsParams) (int64, error)
}

// Engine defines the interface for executing one similarity search against
// the backend engine.
type Engine interface {
	Search(ctx context.Context, req *model.SearchRequest) (*model.MatchSet, error)
	Health(ctx context.Context) error
}
