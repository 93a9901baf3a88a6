package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/data/pgxutil"
)

// Advisory lock namespace for collector operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 1000 is reserved for seqsearch collector operations.
const (
	advisoryLockCollectorMajor        = 1000
	advisoryLockCollectorResults      = 1 // minor key for PurgeOldResults
	advisoryLockCollectorTerminalJobs = 2 // minor key for PurgeTerminalJobs
)

// PurgeOldResults deletes result rows older than MaxAge whether or not they
// were ever consumed. Processes up to BatchSize rows per call to prevent long
// locks and I/O spikes. Uses advisory locks so concurrent collector instances
// skip instead of conflicting. Returns the number of rows deleted.
func (s *JobStore) PurgeOldResults(ctx context.Context, params core.PurgeOldResultsParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockCollectorMajor, advisoryLockCollectorResults).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := s.timeProvider.Now().Add(-params.MaxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM search_results
				WHERE job_id IN (
					SELECT job_id FROM search_results
					WHERE completed_at < $1
					ORDER BY completed_at
					LIMIT $2
				)
			`, cutoffTime, params.BatchSize)
			if err != nil {
				return fmt.Errorf("purge old search_results: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// PurgeTerminalJobs deletes cancelled and timed-out job rows older than
// MaxAge. Processes up to BatchSize rows per call to prevent long locks and
// I/O spikes. Uses advisory locks so concurrent collector instances skip
// instead of conflicting. Returns the number of rows deleted.
func (s *JobStore) PurgeTerminalJobs(ctx context.Context, params core.PurgeTerminalJobsParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockCollectorMajor, advisoryLockCollectorTerminalJobs).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := s.timeProvider.Now().Add(-params.MaxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status IN ('cancelled', 'timed_out')
					  AND updated_at < $1
					ORDER BY updated_at
					LIMIT $2
				)
			`, cutoffTime, params.BatchSize)
			if err != nil {
				return fmt.Errorf("purge terminal jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
