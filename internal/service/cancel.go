package service

import (
	"context"
	"fmt"

	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
)

// Cancel stops a running search. The worker gets a cooperative cancellation
// and a grace period to exit before the job row is marked regardless. A
// worker that finalizes in the same instant wins harmlessly; the mark becomes
// a no-op and the result stays consumable.
func (s *SearchService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.Validation("job id is required")
	}

	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("load job %s: %w", id, err)
	}
	if job.Status != model.JobStatusRunning {
		return apperrors.NotFoundf("no running search with id %s", id)
	}

	s.stopWorker(ctx, job)

	marked, err := s.store.MarkCancelled(ctx, id)
	if err != nil {
		return fmt.Errorf("mark job cancelled %s: %w", id, err)
	}

	if marked {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "search cancelled", "job_id", id)
		}
		metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
			Transition: metrics.TransitionCancelled,
			Result:     metrics.ResultSuccess,
		})
	} else if s.logger != nil {
		s.logger.InfoContext(ctx, "cancel lost race with worker finalization", "job_id", id)
	}

	return nil
}

// stopWorker delivers the cancellation to the live worker when this process
// owns it. Handles recorded by a previous life of the process are unknown to
// the registry; the caller still marks the row, and recovery or the reaper
// resolves the remains.
func (s *SearchService) stopWorker(ctx context.Context, job *model.Job) {
	if job.WorkerHandle == nil {
		return
	}

	found, exited := s.registry.Stop(ctx, *job.WorkerHandle, s.config.CancelGrace)
	if s.logger == nil {
		return
	}
	switch {
	case !found:
		s.logger.InfoContext(ctx, "worker handle unknown to this process, marking job directly",
			"job_id", job.ID,
			"handle", *job.WorkerHandle,
		)
	case !exited:
		s.logger.WarnContext(ctx, "worker did not exit within grace period",
			"job_id", job.ID,
			"grace", s.config.CancelGrace,
		)
	}
}
