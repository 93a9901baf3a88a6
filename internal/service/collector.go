package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/core"
	obserrors "github.com/seqbase/seqsearch/internal/observability/errors"
	"github.com/seqbase/seqsearch/internal/observability/metrics"
	"github.com/seqbase/seqsearch/internal/observability/statsd"
)

// CollectorServiceOptions groups dependencies for CollectorService.
type CollectorServiceOptions struct {
	Store   core.CollectorStore // Required: retention cleanup repository
	Config  config.SearchConfig // Required: retention and batch settings
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// CollectorService deletes result rows nobody collected within the retention
// window. Cancelled and timed-out job rows are kept forever unless a terminal
// retention window is configured explicitly.
type CollectorService struct {
	store   core.CollectorStore
	config  config.SearchConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewCollectorService constructs a new CollectorService.
func NewCollectorService(opts CollectorServiceOptions) (*CollectorService, error) {
	if opts.Store == nil {
		return nil, errors.New("CollectorStore is required")
	}
	if opts.Config.CleanupInterval <= 0 {
		return nil, errors.New("CleanupInterval must be positive")
	}
	if opts.Config.ResultRetention <= 0 {
		return nil, errors.New("ResultRetention must be positive")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "collector_service")
		logger.Debug("CollectorService initialized",
			"interval", opts.Config.CleanupInterval,
			"result_retention", opts.Config.ResultRetention,
			"terminal_job_retention", opts.Config.TerminalJobRetention,
		)
	}

	return &CollectorService{
		store:   opts.Store,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the collector loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *CollectorService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting collector service", "interval", s.config.CleanupInterval)
	}

	waitWithJitter(ctx, s.config.CleanupInterval, s.logger)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	if err := s.collect(ctx); err != nil {
		s.logCollectError(err, "initial collection")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "collector service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.collect(ctx); err != nil {
				s.logCollectError(err, "collection")
				// Continue running despite errors
			}
		}
	}
}

// collect runs every retention step once, continuing past individual
// failures so one broken step cannot starve the others.
func (s *CollectorService) collect(ctx context.Context) error {
	start := time.Now()
	var errs []error

	results, err := s.purgeOldResults(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge old results: %w", err))
	}
	s.emitCollectStep("purge_results", results, err)

	var terminal int64
	if s.config.TerminalJobRetention > 0 {
		terminal, err = s.purgeTerminalJobs(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("purge terminal jobs: %w", err))
		}
		s.emitCollectStep("purge_terminal_jobs", terminal, err)
	}

	if s.metrics != nil {
		s.metrics.Timing("collector.collection_duration", time.Since(start), nil)
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("collection failed: %w", joined)
	}
	return nil
}

// purgeOldResults deletes result rows past retention, consumed or not.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *CollectorService) purgeOldResults(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.store.PurgeOldResults(ctx, core.PurgeOldResultsParams{
			MaxAge:    s.config.ResultRetention,
			BatchSize: s.config.CleanupBatchSize,
		})
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "purged uncollected results",
			"count", totalCount,
			"max_age", s.config.ResultRetention,
		)
	}

	return totalCount, nil
}

// purgeTerminalJobs deletes cancelled and timed-out job rows past the opt-in
// terminal retention window.
func (s *CollectorService) purgeTerminalJobs(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.store.PurgeTerminalJobs(ctx, core.PurgeTerminalJobsParams{
			MaxAge:    s.config.TerminalJobRetention,
			BatchSize: s.config.CleanupBatchSize,
		})
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "purged terminal job rows",
			"count", totalCount,
			"max_age", s.config.TerminalJobRetention,
		)
	}

	return totalCount, nil
}

func (s *CollectorService) emitCollectStep(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("collector.operation", 1, tags)
	if err == nil && count > 0 {
		s.metrics.Count("collector.rows_purged", count, metrics.CloneTags(tags))
	}
}

func (s *CollectorService) logCollectError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}
