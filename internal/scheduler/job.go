package scheduler

import "context"

// Job is a unit of work executed by the worker pool. Sync jobs are the main
// implementation; the interface keeps the pool open to other recurring work
// (cleanup, re-categorization).
type Job interface {
	// Execute runs the job. The context carries the pool's per-job timeout
	// and is cancelled on shutdown.
	Execute(ctx context.Context) error

	// ConnectionID identifies the connection this job works on, for logging
	// and metrics.
	ConnectionID() string

	// Description is a human-readable label for logging.
	Description() string
}
