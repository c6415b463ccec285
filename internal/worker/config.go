package worker

import (
	"fmt"
	"time"
)

// Config tunes the polling workers.
type Config struct {
	// Concurrency is the number of polling goroutines. Each claims and runs
	// jobs independently.
	Concurrency int

	// PollInterval is the sleep between queue checks when no job was found.
	PollInterval time.Duration

	// JobTimeout bounds a single handler run; the job context is canceled
	// past it and the job counts as failed.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for in-flight jobs.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is the age after which a 'running' job is assumed
	// orphaned by a crash and requeued at startup.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate rejects configurations that would spin or never recover jobs.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	case c.Concurrency > 100:
		return fmt.Errorf("concurrency must be at most 100, got %d", c.Concurrency)
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll interval must be at least 1s, got %v", c.PollInterval)
	case c.JobTimeout < time.Second:
		return fmt.Errorf("job timeout must be at least 1s, got %v", c.JobTimeout)
	case c.ShutdownTimeout < time.Second:
		return fmt.Errorf("shutdown timeout must be at least 1s, got %v", c.ShutdownTimeout)
	case c.StaleJobThreshold < time.Minute:
		return fmt.Errorf("stale job threshold must be at least 1m, got %v", c.StaleJobThreshold)
	}
	return nil
}
