package worker

import (
	"context"
	"errors"
)

// JobHandler executes one job type. Type() must match the job_type column
// written by the enqueue helpers.
type JobHandler interface {
	Type() string

	// Handle runs the job. The payload is the raw JSON stored with the job.
	// Wrap errors with NewPermanentError when retrying cannot help.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError marks a failure that must not be retried; the job goes
// straight to 'failed' instead of being rescheduled.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err as non-retryable.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, anywhere in its chain, is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
