package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/domain/model"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
)

// Recover relaunches workers for running rows left behind by a previous life
// of the process. It must run before the HTTP listener starts accepting
// submissions so recovered jobs count against capacity from the first
// admission check. Rows whose deadline already passed are marked timed out
// instead of relaunched.
func (s *SearchService) Recover(ctx context.Context) error {
	jobs, err := s.store.ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("list running jobs for recovery: %w", err)
	}

	if len(jobs) == 0 {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "no orphaned jobs to recover")
		}
		return nil
	}

	var relaunched, expired, broken int
	now := s.now()
	for _, job := range jobs {
		switch {
		case job.Expired(now):
			if _, err := s.store.MarkTimedOut(ctx, job.ID); err != nil {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "mark expired orphan timed out", "job_id", job.ID, "error", err)
				}
				continue
			}
			expired++
		default:
			if err := s.relaunch(ctx, job); err != nil {
				broken++
				continue
			}
			relaunched++
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "recovery finished",
			"found", len(jobs),
			"relaunched", relaunched,
			"expired", expired,
			"unrecoverable", broken,
		)
	}
	metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
		Transition: metrics.TransitionRecovered,
		Result:     metrics.ResultSuccess,
	})

	return nil
}

// relaunch restarts one orphaned job on a fresh worker with a fresh handle.
// The stored handle belongs to a dead goroutine and gets overwritten by the
// new worker's attach; the original deadline is preserved, not extended.
func (s *SearchService) relaunch(ctx context.Context, job *model.Job) error {
	var req model.SearchRequest
	if err := json.Unmarshal(job.Request, &req); err != nil {
		// An unreadable request row can never run again. Finalize it as a
		// failed result so the submitter gets an answer instead of a
		// forever-running status.
		msg := fmt.Sprintf("recovery: stored request is unreadable: %v", err)
		if _, finErr := s.store.Finalize(ctx, core.FinalizeParams{JobID: job.ID, Error: &msg}); finErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "finalize unrecoverable job", "job_id", job.ID, "error", finErr)
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "dropped unrecoverable job", "job_id", job.ID, "error", err)
		}
		return fmt.Errorf("unreadable request: %w", err)
	}

	s.launchWorker(job, &req)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "relaunched orphaned job",
			"job_id", job.ID,
			"deadline", job.Deadline,
		)
	}
	return nil
}
