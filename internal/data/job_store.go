package data

import (
	"database/sql"
	"log/slog"
)

// StoreConfig holds configuration options for the job store.
type StoreConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobStore provides database operations for search job management.
type JobStore struct {
	DB           *sql.DB
	cfg          StoreConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobStore creates a new JobStore instance with the given database connection and configuration.
func NewJobStore(db *sql.DB, cfg StoreConfig) *JobStore {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobStore{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  status,
  request,
  worker_handle,
  submitted_at,
  deadline,
  updated_at
`
