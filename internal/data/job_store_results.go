package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/data/pgxutil"
	"github.com/seqbase/seqsearch/internal/domain/model"
)

// Finalize atomically deletes the job row and inserts the result row in one
// transaction. It returns false without error when the job row was already
// gone (cancelled, timed out or finalized by someone else); no result row is
// written in that case.
func (s *JobStore) Finalize(ctx context.Context, params core.FinalizeParams) (bool, error) {
	if strings.TrimSpace(params.JobID) == "" {
		return false, ErrJobIDRequired
	}
	if params.Payload == nil && params.Error == nil {
		return false, errors.New("finalize requires a payload or an error")
	}
	if params.Payload != nil && params.Error != nil {
		return false, errors.New("finalize accepts a payload or an error, not both")
	}

	finalized := false
	err := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id = $1 AND status = 'running'
			`, params.JobID)
			if err != nil {
				return fmt.Errorf("delete job for finalize: %w", err)
			}

			rowsAffected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("finalize rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return nil
			}

			completedAt := s.timeProvider.Now().UTC()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO search_results (job_id, payload, error, completed_at)
				VALUES ($1, $2, $3, $4)
			`, params.JobID, params.Payload, params.Error, completedAt); err != nil {
				return fmt.Errorf("insert search result: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, completionChannel, params.JobID); err != nil {
				return fmt.Errorf("send completion notification: %w", err)
			}

			finalized = true
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return finalized, nil
}

// ConsumeResult reads and deletes the result row for jobID in one statement.
// A missing row returns ErrResultNotFound; callers cannot tell whether the
// result was already consumed or never existed.
func (s *JobStore) ConsumeResult(ctx context.Context, jobID string) (*model.SearchResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrJobIDRequired
	}

	row := s.DB.QueryRowContext(ctx, `
		DELETE FROM search_results
		WHERE job_id = $1
		RETURNING job_id, payload, error, completed_at
	`, jobID)

	result := &model.SearchResult{}
	var payload []byte
	var errMsg sql.NullString
	if err := row.Scan(&result.JobID, &payload, &errMsg, &result.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("consume search result: %w", err)
	}

	if len(payload) > 0 {
		result.Payload = cloneJSON(payload)
	}
	result.Error = cloneNullableString(errMsg)
	result.CompletedAt = result.CompletedAt.UTC()

	return result, nil
}

// PeekState reports the externally visible state of a search without
// consuming anything. The live job row and the result row are read in a
// single statement so concurrent finalization cannot produce a torn view.
func (s *JobStore) PeekState(ctx context.Context, jobID string) (*model.SearchStatusResponse, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrJobIDRequired
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT status::text, submitted_at, deadline, NULL::timestamptz AS completed_at, 0 AS ord
		FROM jobs
		WHERE id = $1
		UNION ALL
		SELECT 'completed', NULL::timestamptz, NULL::timestamptz, completed_at, 1 AS ord
		FROM search_results
		WHERE job_id = $1
		ORDER BY ord
		LIMIT 1
	`, jobID)

	var statusText string
	var submittedAt, deadline, completedAt sql.NullTime
	var ord int
	if err := row.Scan(&statusText, &submittedAt, &deadline, &completedAt, &ord); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("peek search state: %w", err)
	}

	response := &model.SearchStatusResponse{
		JobID:       jobID,
		SubmittedAt: cloneNullableTime(submittedAt),
		Deadline:    cloneNullableTime(deadline),
		CompletedAt: cloneNullableTime(completedAt),
	}
	if statusText == string(model.SearchStateCompleted) {
		response.Status = model.SearchStateCompleted
	} else {
		response.Status = model.StateForJobStatus(model.JobStatus(statusText))
	}

	return response, nil
}

// Stats returns the number of running jobs. Capacity fields are filled in by
// the service layer, which owns the admission limit.
func (s *JobStore) Stats(ctx context.Context) (*model.SearchStats, error) {
	var stats model.SearchStats
	err := s.DB.QueryRowContext(ctx, `
	  SELECT count(*) FILTER (WHERE status = 'running') AS running
	  FROM jobs
	`).Scan(&stats.Running)
	if err != nil {
		return nil, fmt.Errorf("failed to get search stats: %w", err)
	}
	return &stats, nil
}
