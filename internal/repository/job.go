package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, job_type, payload, priority, status, attempts, max_attempts, run_after, started_at, completed_at, error_message, created_at`

const enqueueJob = `
INSERT INTO jobs (job_type, payload, priority, max_attempts, run_after)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + jobColumns

type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, enqueueJob,
		arg.JobType, arg.Payload, arg.Priority, arg.MaxAttempts, arg.ScheduledAt)
	return scanJob(row)
}

const dequeueJob = `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending' AND run_after <= now()
ORDER BY priority DESC, run_after
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// DequeueJob claims the next runnable job. Call inside a transaction so the
// row lock from SKIP LOCKED holds until the status update commits.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	return scanJob(q.db.QueryRowContext(ctx, dequeueJob))
}

const updateJobStarted = `
UPDATE jobs
SET status = 'running', started_at = now(), attempts = attempts + 1
WHERE id = $1
`

func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobStarted, id)
	return err
}

const updateJobCompleted = `
UPDATE jobs
SET status = 'completed', completed_at = now()
WHERE id = $1
`

func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobCompleted, id)
	return err
}

const updateJobFailed = `
UPDATE jobs
SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
    run_after = CASE WHEN attempts >= max_attempts THEN run_after
                     ELSE now() + (interval '1 minute' * power(2, attempts)) END,
    error_message = $2,
    completed_at = CASE WHEN attempts >= max_attempts THEN now() ELSE NULL END
WHERE id = $1
`

type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// UpdateJobFailed reschedules the job with exponential backoff, or marks it
// failed once attempts reach max_attempts.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, updateJobFailed, arg.ID, arg.ErrorMessage)
	return err
}

const recoverStaleJobs = `
UPDATE jobs
SET status = 'pending', started_at = NULL
WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second')
`

// RecoverStaleJobs resets jobs stuck in 'running' longer than the threshold,
// which happens when a worker dies mid-job.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, recoverStaleJobs, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanJob(row *sql.Row) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.JobType, &j.Payload, &j.Priority, &j.Status, &j.Attempts,
		&j.MaxAttempts, &j.RunAfter, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage, &j.CreatedAt)
	return j, err
}
