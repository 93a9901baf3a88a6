package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/core"
	domainjob "github.com/seqbase/seqsearch/internal/domain/job"
	"github.com/seqbase/seqsearch/internal/domain/model"
	"github.com/seqbase/seqsearch/internal/domain/query"
	apperrors "github.com/seqbase/seqsearch/internal/errors"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
	"github.com/seqbase/seqsearch/internal/observability/statsd"
)

// idCreateAttempts bounds the retry loop around identifier collisions. The
// identifier carries 128 random bits, so exhausting the budget means the
// random source is broken rather than unlucky.
const idCreateAttempts = 10

// SearchServiceOptions groups dependencies for SearchService.
type SearchServiceOptions struct {
	Store    core.JobStore       // Required: job persistence
	Engine   core.Engine         // Required: search engine adapter
	Config   config.SearchConfig // Required: admission and timeout settings
	Logger   *slog.Logger        // Optional: structured logger
	Metrics  statsd.Sink         // Optional: metrics sink (StatsD-compatible)
	Registry *domainjob.Registry // Optional: override the worker registry
	Policy   *domainjob.DeadlinePolicy
	Notifier domainjob.Notifier // Optional: custom result completion notifier
	Now      func() time.Time   // Optional: clock override for tests
}

// SearchService owns the full lifecycle of similarity searches.
//
// This service manages:
// - Admission control against the configured concurrency limit
// - Job row creation with collision-safe identifiers
// - One worker goroutine per admitted search
// - Result retrieval, status reporting, and cancellation
// - Crash recovery of orphaned running jobs.
type SearchService struct {
	store    core.JobStore
	engine   core.Engine
	config   config.SearchConfig
	policy   *domainjob.DeadlinePolicy
	registry *domainjob.Registry
	notifier domainjob.Notifier
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time

	// admission serializes the count-then-insert admission check so two
	// concurrent submissions cannot both observe a free slot.
	admission *semaphore.Weighted

	// baseCtx parents every worker context so request cancellation never
	// tears down an admitted search.
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// NewSearchService constructs a new SearchService.
func NewSearchService(opts SearchServiceOptions) (*SearchService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("Engine is required")
	}
	if opts.Config.MaxJobs < 1 {
		return nil, errors.New("MaxJobs must be positive")
	}

	policy := opts.Policy
	if policy == nil {
		var err error
		policy, err = domainjob.NewDeadlinePolicy(opts.Config.JobTimeout, opts.Config.MaxJobTimeout)
		if err != nil {
			return nil, fmt.Errorf("create deadline policy: %w", err)
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		var err error
		notifier, err = domainjob.NewNotifier(domainjob.NotifierOptions{Waiter: opts.Store})
		if err != nil {
			return nil, fmt.Errorf("create completion notifier: %w", err)
		}
	}

	registry := opts.Registry
	if registry == nil {
		registry = domainjob.NewRegistry()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "search_service")
		logger.Debug("SearchService initialized",
			"max_jobs", opts.Config.MaxJobs,
			"default_timeout", policy.Default(),
		)
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &SearchService{
		store:      opts.Store,
		engine:     opts.Engine,
		config:     opts.Config,
		policy:     policy,
		registry:   registry,
		notifier:   notifier,
		logger:     logger,
		metrics:    opts.Metrics,
		now:        now,
		admission:  semaphore.NewWeighted(1),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}, nil
}

// MustNewSearchService constructs a new SearchService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewSearchService(opts SearchServiceOptions) *SearchService {
	svc, err := NewSearchService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SearchService: %v", err))
	}
	return svc
}

// Submit validates and admits one search. On success the search is already
// running on its own goroutine and the returned job carries the identifier
// callers use for every later operation.
func (s *SearchService) Submit(ctx context.Context, req *model.SearchRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("search request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if req.Filter != "" {
		if err := query.Validate(req.Filter); err != nil {
			return nil, apperrors.Validationf("invalid filter expression: %v", err)
		}
	}

	job, err := s.admit(ctx, req)
	if err != nil {
		return nil, err
	}

	s.launchWorker(job, req)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "search admitted",
			"job_id", job.ID,
			"index", req.Index,
			"deadline", job.Deadline,
		)
	}
	metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
		Index:      req.Index,
		Transition: metrics.TransitionSubmitted,
		Result:     metrics.ResultSuccess,
	})

	return job, nil
}

// admit performs the serialized capacity check and creates the job row.
// The semaphore choke makes count-then-insert effectively atomic across
// concurrent submissions in this process.
func (s *SearchService) admit(ctx context.Context, req *model.SearchRequest) (*model.Job, error) {
	if err := s.admission.Acquire(ctx, 1); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCanceled, "admission interrupted")
	}
	defer s.admission.Release(1)

	running, err := s.store.CountRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("count running jobs: %w", err)
	}
	if running >= s.config.MaxJobs {
		metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
			Index:      req.Index,
			Transition: metrics.TransitionSubmitted,
			Result:     metrics.ResultNoop,
		})
		return nil, apperrors.Capacityf("search capacity exhausted: %d of %d jobs running", running, s.config.MaxJobs)
	}

	return s.createJob(ctx, req)
}

// createJob inserts the running row, retrying on the vanishingly unlikely
// identifier collision.
func (s *SearchService) createJob(ctx context.Context, req *model.SearchRequest) (*model.Job, error) {
	request, err := marshalRequest(req)
	if err != nil {
		return nil, err
	}

	requested := time.Duration(req.TimeoutSeconds) * time.Second
	now := s.now().UTC()
	deadline, decision := s.policy.Deadline(now, requested)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped requested search timeout",
			"requested", decision.Requested,
			"granted", decision.Timeout,
		)
	}

	for attempt := 1; attempt <= idCreateAttempts; attempt++ {
		id, err := domainjob.NewID(now)
		if err != nil {
			return nil, fmt.Errorf("generate job id: %w", err)
		}

		job := &model.Job{
			ID:          id,
			Status:      model.JobStatusRunning,
			Request:     request,
			SubmittedAt: now,
			Deadline:    deadline,
		}

		created, err := s.store.TryCreate(ctx, job)
		if err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		if created {
			return job, nil
		}

		if s.logger != nil {
			s.logger.WarnContext(ctx, "job id collision, retrying", "attempt", attempt)
		}
	}

	return nil, apperrors.Internalf("could not allocate a unique job id after %d attempts", idCreateAttempts)
}

// Stats reports current load against the configured capacity.
func (s *SearchService) Stats(ctx context.Context) (*model.SearchStats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get search stats: %w", err)
	}

	stats.Capacity = s.config.MaxJobs
	stats.Available = s.config.MaxJobs - stats.Running
	if stats.Available < 0 {
		stats.Available = 0
	}
	return stats, nil
}

// Health reports whether the backing engine is reachable.
func (s *SearchService) Health(ctx context.Context) error {
	return s.engine.Health(ctx)
}

// RunningWorkers reports the number of live worker goroutines in this process.
func (s *SearchService) RunningWorkers() int {
	return s.registry.Len()
}

// Shutdown cancels every live worker and stops the completion listener.
// Interrupted searches leave their running rows behind for recovery on the
// next start.
func (s *SearchService) Shutdown() {
	if s.logger != nil {
		s.logger.Info("stopping search service", "live_workers", s.registry.Len())
	}

	s.baseCancel()
	s.registry.StopAll()
	if s.notifier != nil {
		s.notifier.StopAll()
	}
}

func marshalRequest(req *model.SearchRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode search request")
	}
	return data, nil
}
