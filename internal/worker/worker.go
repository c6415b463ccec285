// Package worker runs background jobs from the Postgres jobs table. Jobs are
// claimed with FOR UPDATE SKIP LOCKED so any number of processes can poll the
// same queue; export generation and photo thumbnails run through it.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/metrics"
	"github.com/jbaudry/previsk/internal/repository"
)

// Worker polls the jobs table and dispatches to registered handlers.
type Worker struct {
	db       *sql.DB
	queries  *repository.Queries
	handlers map[string]JobHandler
	config   Config
	logger   *slog.Logger

	wg   sync.WaitGroup
	quit chan struct{}
}

// New creates a Worker. Register handlers before calling Start.
func New(db *sql.DB, queries *repository.Queries, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		db:       db,
		queries:  queries,
		handlers: make(map[string]JobHandler),
		config:   config,
		logger:   logger,
		quit:     make(chan struct{}),
	}, nil
}

// Register adds a handler keyed by its job type.
func (w *Worker) Register(handler JobHandler) {
	if _, dup := w.handlers[handler.Type()]; dup {
		w.logger.Warn("replacing job handler", "job_type", handler.Type())
	}
	w.handlers[handler.Type()] = handler
}

// Start resets jobs orphaned by a crashed process, then launches the polling
// goroutines.
func (w *Worker) Start(ctx context.Context) {
	recovered, err := w.queries.RecoverStaleJobs(ctx, w.config.StaleJobThreshold.Seconds())
	if err != nil {
		w.logger.Error("stale job recovery failed", "error", err)
	} else if recovered > 0 {
		w.logger.Warn("requeued stale jobs", "count", recovered)
	}

	for i := 1; i <= w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.loop(ctx, w.logger.With("worker_id", i))
	}
}

// Stop signals the polling goroutines and waits up to ShutdownTimeout for
// in-flight jobs.
func (w *Worker) Stop() {
	close(w.quit)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("worker stopped")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timed out with jobs still running")
	}
}

// loop drains the queue, then sleeps PollInterval before checking again.
func (w *Worker) loop(ctx context.Context, logger *slog.Logger) {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			return
		default:
		}

		claimed, err := w.runOne(ctx, logger)
		if err != nil {
			logger.Error("job processing failed", "error", err)
		}
		if claimed {
			// More work may be queued behind this job.
			continue
		}

		select {
		case <-w.quit:
			return
		case <-time.After(w.config.PollInterval):
		}
	}
}

// runOne claims and executes at most one job. The claim happens in its own
// transaction; execution does not hold any lock, so a crash mid-job leaves a
// stale 'running' row for the next startup to recover.
func (w *Worker) runOne(ctx context.Context, logger *slog.Logger) (claimed bool, err error) {
	job, ok, err := w.claim(ctx)
	if err != nil || !ok {
		return false, err
	}

	logger = logger.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts+1)
	logger.Info("job started")
	if job.Attempts > 0 {
		metrics.JobRetried(job.JobType)
	}

	start := time.Now()
	if err := w.dispatch(ctx, job); err != nil {
		metrics.JobFailed(job.JobType)
		logger.Error("job failed", "error", err)
		w.recordFailure(ctx, job.ID, err)
		return true, nil
	}

	metrics.JobCompleted(job.JobType, time.Since(start))
	logger.Info("job completed", "duration", time.Since(start))
	if err := w.queries.UpdateJobCompleted(ctx, job.ID); err != nil {
		return true, fmt.Errorf("mark job completed: %w", err)
	}
	return true, nil
}

// claim dequeues the next pending job and marks it running, atomically.
func (w *Worker) claim(ctx context.Context) (repository.Job, bool, error) {
	var zero repository.Job

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback()

	qtx := w.queries.WithTx(tx)
	job, err := qtx.DequeueJob(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("dequeue: %w", err)
	}
	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return zero, false, fmt.Errorf("mark job started: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return zero, false, fmt.Errorf("commit claim: %w", err)
	}
	return job, true, nil
}

// dispatch runs the job's handler under JobTimeout. An unknown job type is a
// permanent failure.
func (w *Worker) dispatch(ctx context.Context, job repository.Job) error {
	handler, ok := w.handlers[job.JobType]
	if !ok {
		return NewPermanentError(fmt.Errorf("no handler for job type %q", job.JobType))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()
	return handler.Handle(jobCtx, job.Payload)
}

// recordFailure reschedules the job with backoff, or marks it failed for
// permanent errors and exhausted attempts (the SQL side decides that).
func (w *Worker) recordFailure(ctx context.Context, jobID uuid.UUID, jobErr error) {
	if IsPermanent(jobErr) {
		w.logger.Warn("permanent job failure, not retrying", "job_id", jobID, "error", jobErr)
	}

	err := w.queries.UpdateJobFailed(ctx, repository.UpdateJobFailedParams{
		ID:           jobID,
		ErrorMessage: sql.NullString{String: jobErr.Error(), Valid: true},
	})
	if err != nil {
		w.logger.Error("could not record job failure", "job_id", jobID, "error", err)
	}
}
