package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/seqbase/seqsearch/internal/data/pgxutil"
	"github.com/seqbase/seqsearch/internal/domain/model"
)

// completionChannel is the pg_notify channel fired whenever a job reaches a
// terminal state.
const completionChannel = "job_completions"

// TryCreate inserts a new running job row. It returns false without error when
// the id already exists, so the caller can retry with a fresh identifier. Any
// other failure is returned as-is.
func (s *JobStore) TryCreate(ctx context.Context, job *model.Job) (bool, error) {
	if job == nil {
		return false, errors.New("job is required")
	}
	if strings.TrimSpace(job.ID) == "" {
		return false, ErrJobIDRequired
	}
	if len(job.Request) == 0 {
		return false, errors.New("job request is required")
	}

	currentTime := s.timeProvider.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO jobs (id, status, request, submitted_at, deadline, updated_at)
		VALUES ($1, 'running', $2, $3, $4, $5)
	`, job.ID, []byte(job.Request), job.SubmittedAt.UTC(), job.Deadline.UTC(), currentTime)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("insert job: %w", err)
	}

	return true, nil
}

// GetByID retrieves a job by its ID.
func (s *JobStore) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, s.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// CountRunning returns the number of committed running job rows. Admission
// decisions read this count, never in-memory state.
func (s *JobStore) CountRunning(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM jobs WHERE status = 'running'
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count running jobs: %w", err)
	}
	return count, nil
}

// ListRunning returns every running job ordered by submission time. Recovery
// uses it to re-dispatch work left over from a previous process.
func (s *JobStore) ListRunning(ctx context.Context) ([]*model.Job, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'running'
		ORDER BY submitted_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list running jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			// best-effort close; nothing further to do
			_ = closeErr
		}
	}()

	return scanJobRows(rows)
}

// ListExpired returns running jobs whose deadline passed before now, oldest
// deadline first, capped at limit.
func (s *JobStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Job, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'running' AND deadline < $1
		ORDER BY deadline
		LIMIT $2
	`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired jobs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			// best-effort close; nothing further to do
			_ = closeErr
		}
	}()

	return scanJobRows(rows)
}

// AttachWorkerHandle records the handle of the worker executing the job.
// Returns false when the job is no longer running.
func (s *JobStore) AttachWorkerHandle(ctx context.Context, jobID, handle string) (bool, error) {
	if strings.TrimSpace(handle) == "" {
		return false, errors.New("worker handle is required")
	}

	currentTime := s.timeProvider.Now().UTC()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs
		SET worker_handle = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, jobID, handle, currentTime)
	if err != nil {
		return false, fmt.Errorf("attach worker handle: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach worker handle rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// MarkCancelled flips a still-running job to cancelled. Returns false without
// error when the row is already gone or no longer running.
func (s *JobStore) MarkCancelled(ctx context.Context, id string) (bool, error) {
	return s.markTerminal(ctx, id, model.JobStatusCancelled)
}

// MarkTimedOut flips a still-running job to timed_out. Returns false without
// error when the row is already gone or no longer running.
func (s *JobStore) MarkTimedOut(ctx context.Context, id string) (bool, error) {
	return s.markTerminal(ctx, id, model.JobStatusTimedOut)
}

func (s *JobStore) markTerminal(ctx context.Context, id string, status model.JobStatus) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("status %s is not terminal", status)
	}

	marked := false
	err := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			currentTime := s.timeProvider.Now().UTC()
			res, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = $2,
				    worker_handle = NULL,
				    updated_at = $3
				WHERE id = $1 AND status = 'running'
			`, id, status, currentTime)
			if err != nil {
				return fmt.Errorf("mark job %s: %w", status, err)
			}

			rowsAffected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("mark job rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return nil
			}

			// Terminal transitions wake long-poll waiters too, so a caller
			// blocked on a result learns its job died without waiting out
			// the poll window.
			if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, completionChannel, id); err != nil {
				return fmt.Errorf("send completion notification: %w", err)
			}

			marked = true
			return nil
		},
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

// WaitForCompletion waits for a PostgreSQL notification indicating a job
// reached a terminal state: a result row landed or the job was cancelled or
// timed out.
func (s *JobStore) WaitForCompletion(ctx context.Context) error {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	quoted := pgx.Identifier{completionChannel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", completionChannel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// scanJobRows drains a *sql.Rows cursor of job rows.
func scanJobRows(rows *sql.Rows) ([]*model.Job, error) {
	jobs := make([]*model.Job, 0)
	for rows.Next() {
		job, err := scanJobFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// collectJobFromRows collects a single job from pgx rows using pgx v5 helpers.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	request      []byte
	workerHandle sql.NullString
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.Status,
		&d.request,
		&d.workerHandle,
		&job.SubmittedAt,
		&job.Deadline,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.Request = cloneJSON(d.request)
	job.WorkerHandle = cloneNullableString(d.workerHandle)
	job.SubmittedAt = job.SubmittedAt.UTC()
	job.Deadline = job.Deadline.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
