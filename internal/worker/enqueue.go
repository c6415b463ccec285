package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/repository"
)

// Job types. Each must match the Type() of a registered JobHandler.
const (
	JobTypeGenerateExport    = "generate_duerp_export"
	JobTypeGenerateThumbnail = "generate_thumbnail"
)

// Scheduling priorities; higher runs first.
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

const defaultMaxAttempts = 3

// GenerateExportPayload parameterizes a DUERP export job.
type GenerateExportPayload struct {
	ExportID  uuid.UUID `json:"export_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	CompanyID uuid.UUID `json:"company_id"`
	UserID    uuid.UUID `json:"user_id"`
	Format    string    `json:"format"` // "pdf" or "csv"
}

// GenerateThumbnailPayload parameterizes an observation thumbnail job.
type GenerateThumbnailPayload struct {
	ObservationID uuid.UUID `json:"observation_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	PhotoKey      string    `json:"photo_key"`
}

// EnqueueOption adjusts how a job is queued.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority overrides the default PriorityNormal.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.Priority = priority }
}

// WithDelay holds the job back for the given duration.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) { p.ScheduledAt = time.Now().Add(delay) }
}

// EnqueueJob serializes payload and inserts a pending job row. The worker
// pool picks it up on its next poll.
func EnqueueJob(ctx context.Context, queries *repository.Queries, jobType string, payload interface{}, opts ...EnqueueOption) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: defaultMaxAttempts,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueGenerateExport queues the build of an export file. The export row
// must already exist in pending state.
func EnqueueGenerateExport(ctx context.Context, queries *repository.Queries, payload GenerateExportPayload, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeGenerateExport, payload, opts...)
}

// EnqueueGenerateThumbnail queues thumbnail generation for a stored photo.
func EnqueueGenerateThumbnail(ctx context.Context, queries *repository.Queries, payload GenerateThumbnailPayload, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeGenerateThumbnail, payload, opts...)
}
