package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/domain/model"
	"github.com/seqbase/seqsearch/internal/domain/query"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
)

// launchWorker starts the goroutine that executes one admitted search. The
// worker context derives from the service's base context, never the
// submitting request, and carries the job's deadline.
func (s *SearchService) launchWorker(job *model.Job, req *model.SearchRequest) {
	workerCtx, cancel := context.WithDeadline(s.baseCtx, job.Deadline)
	handle := s.registry.Register(cancel)

	go s.runWorker(workerCtx, cancel, handle.ID(), job, req)
}

// runWorker drives one search to a terminal outcome. Every exit path either
// writes a result row through Finalize, marks the job timed out, or defers to
// a concurrent canceller that already owns the job row.
func (s *SearchService) runWorker(
	ctx context.Context,
	cancel context.CancelFunc,
	handleID string,
	job *model.Job,
	req *model.SearchRequest,
) {
	defer s.registry.Release(handleID)
	defer cancel()

	// Attachment is advisory. A job that is no longer running was cancelled
	// or reaped between admission and worker start; nothing left to do.
	attached, err := s.store.AttachWorkerHandle(ctx, job.ID, handleID)
	if err != nil {
		if !isContextCancellation(err) && s.logger != nil {
			s.logger.ErrorContext(ctx, "attach worker handle", "job_id", job.ID, "error", err)
		}
		if isContextCancellation(err) {
			s.finishInterrupted(ctx, job, req, s.now())
			return
		}
	} else if !attached {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "job gone before worker start", "job_id", job.ID)
		}
		return
	}

	start := s.now()
	result, err := s.engine.Search(ctx, req)
	if err != nil {
		s.finishFailed(ctx, job, req, err, start)
		return
	}

	if req.Filter != "" {
		result.Matches, err = query.Apply(req.Filter, result.Matches)
		if err != nil {
			s.finishFailed(ctx, job, req, apperrors.Wrap(err, apperrors.ErrCodeValidation, "apply filter"), start)
			return
		}
		result.Total = len(result.Matches)
	}

	s.finishCompleted(ctx, job, req, result, start)
}

// finishCompleted writes the successful result row. A false Finalize means a
// canceller or the reaper claimed the job first; the payload is dropped.
func (s *SearchService) finishCompleted(
	ctx context.Context,
	job *model.Job,
	req *model.SearchRequest,
	result *model.MatchSet,
	start time.Time,
) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.finishFailed(ctx, job, req, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode result"), start)
		return
	}

	finalized, err := s.finalize(core.FinalizeParams{JobID: job.ID, Payload: payload})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "finalize completed search", "job_id", job.ID, "error", err)
		}
		return
	}

	if !finalized {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "search finished after job was stopped, dropping result", "job_id", job.ID)
		}
		return
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "search completed",
			"job_id", job.ID,
			"matches", result.Total,
			"duration", s.now().Sub(start),
		)
	}
	metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
		Index:      req.Index,
		Transition: metrics.TransitionCompleted,
		Result:     metrics.ResultSuccess,
		Duration:   s.now().Sub(start),
	})
}

// finishFailed handles every error exit. Deadline errors self-mark the job
// timed out, cancellations defer to the canceller, and genuine engine
// failures become failed result rows callers can still consume.
func (s *SearchService) finishFailed(
	ctx context.Context,
	job *model.Job,
	req *model.SearchRequest,
	searchErr error,
	start time.Time,
) {
	// Only the worker's own context decides between interruption and failure.
	// An engine-side timeout with a live worker context is a plain failure
	// and still produces a consumable result row.
	if ctx.Err() != nil {
		s.finishInterrupted(ctx, job, req, start)
		return
	}

	msg := searchErr.Error()
	finalized, err := s.finalize(core.FinalizeParams{JobID: job.ID, Error: &msg})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "finalize failed search", "job_id", job.ID, "error", err)
		}
		return
	}
	if !finalized {
		return
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "search failed",
			"job_id", job.ID,
			"error", msg,
			"duration", s.now().Sub(start),
		)
	}
	metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
		Index:      req.Index,
		Transition: metrics.TransitionFailed,
		Result:     metrics.ResultError,
		Duration:   s.now().Sub(start),
		Err:        searchErr,
	})
}

// finishInterrupted resolves a worker stopped by its context. Deadline expiry
// is the worker's own timeout and gets self-marked; plain cancellation means
// a canceller or shutdown owns the job row and the worker just leaves.
func (s *SearchService) finishInterrupted(ctx context.Context, job *model.Job, req *model.SearchRequest, start time.Time) {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "search worker cancelled", "job_id", job.ID)
		}
		return
	}

	// The worker context is dead; marking uses a short detached context so
	// the terminal write still lands.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	marked, err := s.store.MarkTimedOut(markCtx, job.ID)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "mark job timed out", "job_id", job.ID, "error", err)
		}
		return
	}
	if !marked {
		return
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "search timed out",
			"job_id", job.ID,
			"deadline", job.Deadline,
		)
	}
	metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
		Index:      req.Index,
		Transition: metrics.TransitionTimedOut,
		Result:     metrics.ResultError,
		Duration:   s.now().Sub(start),
	})
}

// finalize runs Finalize on a detached context. Worker contexts carry the
// job deadline, and a result that raced the deadline should still be written.
func (s *SearchService) finalize(params core.FinalizeParams) (bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.baseCtx), 10*time.Second)
	defer cancel()
	return s.store.Finalize(ctx, params)
}
