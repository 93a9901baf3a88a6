package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/core"
	domainjob "github.com/seqbase/seqsearch/internal/domain/job"
	"github.com/seqbase/seqsearch/internal/domain/model"
	obserrors "github.com/seqbase/seqsearch/internal/observability/errors"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
	"github.com/seqbase/seqsearch/internal/observability/statsd"
)

// reapBatchSize bounds how many expired jobs one sweep loads at a time.
const reapBatchSize = 100

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Store    core.JobStore       // Required: job persistence
	Config   config.SearchConfig // Required: interval, grace, and timeout settings
	Registry *domainjob.Registry // Optional: worker registry for in-process termination
	Logger   *slog.Logger        // Optional: structured logger
	Metrics  statsd.Sink         // Optional: metrics sink (StatsD-compatible)
	Now      func() time.Time    // Optional: clock override for tests
}

// ReaperService reclaims running jobs whose deadline has passed. Workers
// normally time themselves out through their own context deadline; the reaper
// is the safety net behind wedged workers and handles orphaned by a crash.
type ReaperService struct {
	store    core.JobStore
	config   config.SearchConfig
	registry *domainjob.Registry
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Config.CleanupInterval <= 0 {
		return nil, errors.New("CleanupInterval must be positive")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.CleanupInterval,
			"cancel_grace", opts.Config.CancelGrace,
		)
	}

	return &ReaperService{
		store:    opts.Store,
		config:   opts.Config,
		registry: opts.Registry,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.CleanupInterval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	waitWithJitter(ctx, s.config.CleanupInterval, s.logger)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	if err := s.sweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
				// Continue running despite errors
			}
		}
	}
}

// sweep finds expired running jobs and drives each to timed_out. One failing
// job never blocks the rest of the batch.
func (s *ReaperService) sweep(ctx context.Context) error {
	start := s.now()

	var reaped int64
	var errs []error
	for {
		expired, err := s.store.ListExpired(ctx, s.now(), reapBatchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("list expired jobs: %w", err))
			break
		}
		if len(expired) == 0 {
			break
		}

		var passReaped int64
		for _, job := range expired {
			if err := s.reap(ctx, job); err != nil {
				errs = append(errs, fmt.Errorf("reap job %s: %w", job.ID, err))
				continue
			}
			passReaped++
		}
		reaped += passReaped

		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if len(expired) < reapBatchSize {
			break
		}
		// A full batch where nothing was reaped means the store keeps
		// listing the same jobs back. Stop the sweep instead of looping on
		// them; the next tick retries.
		if passReaped == 0 {
			break
		}
	}

	s.emitSweepMetrics(reaped, time.Since(start), firstError(errs...))

	if reaped > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "reaped expired jobs", "count", reaped)
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("sweep failed: %w", joined)
	}
	return nil
}

// reap terminates one expired job: cooperative stop for a locally owned
// worker, then the terminal mark either way. A worker that finalized in the
// meantime makes the mark a no-op.
func (s *ReaperService) reap(ctx context.Context, job *model.Job) error {
	if s.registry != nil && job.WorkerHandle != nil {
		found, exited := s.registry.Stop(ctx, *job.WorkerHandle, s.config.CancelGrace)
		if found && !exited && s.logger != nil {
			s.logger.WarnContext(ctx, "expired worker did not exit within grace period",
				"job_id", job.ID,
				"grace", s.config.CancelGrace,
			)
		}
	}

	marked, err := s.store.MarkTimedOut(ctx, job.ID)
	if err != nil {
		return err
	}
	if marked {
		metrics.EmitSearchLifecycle(s.metrics, metrics.SearchMetric{
			Transition: metrics.TransitionTimedOut,
			Result:     metrics.ResultError,
		})
	}
	return nil
}

func (s *ReaperService) emitSweepMetrics(reaped int64, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if reaped == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.sweep", 1, tags)
	if reaped > 0 {
		s.metrics.Count("reaper.jobs_reaped", reaped, metrics.CloneTags(tags))
	}
	if elapsed > 0 {
		s.metrics.Timing("reaper.sweep_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

// waitWithJitter sleeps a random delay up to 10% of the interval.
func waitWithJitter(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	maxJitter := int64(interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if logger != nil {
			logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
