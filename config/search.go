package config

import "time"

// SearchConfig contains job orchestration configuration: admission limits,
// deadlines, and retention cleanup behaviour.
type SearchConfig struct {
	// MaxJobs is the admission cap on concurrently running search jobs.
	MaxJobs int `env:"SEARCH_MAX_JOBS" envDefault:"8"`

	// JobTimeout is the default execution deadline granted to a job.
	JobTimeout time.Duration `env:"SEARCH_JOB_TIMEOUT" envDefault:"10m"`

	// MaxJobTimeout caps per-request timeout overrides.
	MaxJobTimeout time.Duration `env:"SEARCH_MAX_JOB_TIMEOUT" envDefault:"1h"`

	// ResultRetention is how long unconsumed results are kept before the
	// collector drops them.
	ResultRetention time.Duration `env:"SEARCH_RESULT_RETENTION" envDefault:"24h"`

	// TerminalJobRetention is how long cancelled/timed-out job rows are kept.
	// Zero keeps them forever; set a duration to have the collector purge them.
	TerminalJobRetention time.Duration `env:"SEARCH_TERMINAL_JOB_RETENTION" envDefault:"0"`

	// CleanupInterval is the tick interval for the reaper and collector loops.
	CleanupInterval time.Duration `env:"SEARCH_CLEANUP_INTERVAL" envDefault:"30s"`

	// CancelGrace is how long cancellation and reaping wait for a worker to
	// exit after its context is cancelled before marking the job anyway.
	CancelGrace time.Duration `env:"SEARCH_CANCEL_GRACE" envDefault:"5s"`

	// CleanupBatchSize bounds the rows touched per cleanup delete.
	CleanupBatchSize int `env:"SEARCH_CLEANUP_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to search configuration values.
func (s *SearchConfig) Sanitize() {
	if s.MaxJobs < 1 {
		s.MaxJobs = 1
	}
	if s.JobTimeout <= 0 {
		s.JobTimeout = 10 * time.Minute
	}
	if s.MaxJobTimeout < s.JobTimeout {
		s.MaxJobTimeout = s.JobTimeout
	}
	if s.ResultRetention <= 0 {
		s.ResultRetention = 24 * time.Hour
	}
	if s.TerminalJobRetention < 0 {
		s.TerminalJobRetention = 0
	}
	if s.CleanupInterval <= 0 {
		s.CleanupInterval = 30 * time.Second
	}
	if s.CancelGrace <= 0 {
		s.CancelGrace = 5 * time.Second
	}
	if s.CleanupBatchSize < 1 {
		s.CleanupBatchSize = 1
	}
}
