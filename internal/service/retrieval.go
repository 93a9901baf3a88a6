package service

import (
	"context"
	"fmt"
	"time"

	"github.com/seqbase/seqsearch/internal/domain/model"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
)

// Status reports the externally visible state of a search without consuming
// anything. Unknown, already consumed, and purged searches all come back as
// NotFound; callers cannot tell them apart.
func (s *SearchService) Status(ctx context.Context, id string) (*model.SearchStatusResponse, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	status, err := s.store.PeekState(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("peek search state %s: %w", id, err)
	}
	return status, nil
}

// ResultOutcome is what one retrieval attempt produced. Exactly one of
// Result or Status is set on success.
type ResultOutcome struct {
	// Result is the consumed terminal result. Consuming deletes the row;
	// a second retrieval returns NotFound.
	Result *model.SearchResult
	// Status is set instead of Result while the search is still running.
	Status *model.SearchStatusResponse
}

// Result attempts to consume the search's terminal result. While the search
// is still running and wait is positive, the call blocks up to wait for a
// completion notification before giving up and reporting the running state.
func (s *SearchService) Result(ctx context.Context, id string, wait time.Duration) (*ResultOutcome, error) {
	if id == "" {
		return nil, apperrors.Validation("job id is required")
	}

	if wait <= 0 {
		return s.tryResult(ctx, id)
	}

	unsub, notify := s.notifier.Subscribe()
	defer unsub()

	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	for {
		// tryResult only reports a status while the search is still
		// running; anything terminal comes back as a result or an error.
		outcome, err := s.tryResult(ctx, id)
		if err != nil || outcome.Result != nil {
			return outcome, err
		}

		select {
		case <-notify:
			// Some job finished; re-check ours.
		case <-deadline.C:
			return outcome, nil
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, "result wait interrupted")
		}
	}
}

// tryResult is one point-in-time retrieval attempt: consume first, then fall
// back to the non-consuming state view.
func (s *SearchService) tryResult(ctx context.Context, id string) (*ResultOutcome, error) {
	result, err := s.store.ConsumeResult(ctx, id)
	if err == nil {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "search result consumed",
				"job_id", id,
				"failed", result.Failed(),
			)
		}
		metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
			Transition: metrics.TransitionConsumed,
			Result:     metrics.ResultSuccess,
		})
		return &ResultOutcome{Result: result}, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("consume search result %s: %w", id, err)
	}

	status, err := s.store.PeekState(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("peek search state %s: %w", id, err)
	}

	// The result row can land between the consume attempt and the peek. A
	// completed peek therefore retries the consume; losing that second race
	// to a concurrent consumer collapses into NotFound like any other
	// already-consumed result.
	if status.Status == model.SearchStateCompleted {
		result, err := s.store.ConsumeResult(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, err
			}
			return nil, fmt.Errorf("consume search result %s: %w", id, err)
		}
		return &ResultOutcome{Result: result}, nil
	}

	// Cancelled and timed-out searches never grow a consumable result, so
	// retrieval collapses them into NotFound. Status keeps reporting the
	// terminal state for callers that want it.
	if status.Status != model.SearchStateRunning {
		return nil, apperrors.NotFoundf("no result for search %s", id)
	}

	return &ResultOutcome{Status: status}, nil
}
