package sync

import (
	"context"
	"fmt"
	"log"

	"tern/internal/domain/connection"
)

// ConnectionSyncJob adapts one connection's sync to the scheduler's Job
// interface so batch runs can fan out over the worker pool.
type ConnectionSyncJob struct {
	conn   *connection.Connection
	syncer *ConnectionSyncer
}

// NewConnectionSyncJob creates a job that syncs the given connection.
func NewConnectionSyncJob(conn *connection.Connection, syncer *ConnectionSyncer) *ConnectionSyncJob {
	return &ConnectionSyncJob{conn: conn, syncer: syncer}
}

// Execute runs the sync. Errors are returned for the pool's logging and
// metrics; they never propagate into other jobs.
func (j *ConnectionSyncJob) Execute(ctx context.Context) error {
	if err := j.syncer.Sync(ctx, j.conn); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// ConnectionID returns the connection this job syncs.
func (j *ConnectionSyncJob) ConnectionID() string {
	return j.conn.ID
}

// Description returns a human-readable description for logging.
func (j *ConnectionSyncJob) Description() string {
	return fmt.Sprintf("connection sync (%s)", j.conn.InstitutionName)
}

// JobProvider builds the scheduler's job list: one sync job per syncable
// connection in the environment.
type JobProvider struct {
	connections connection.Repository
	syncer      *ConnectionSyncer
	environment string
}

// NewJobProvider creates a provider scoped to one environment.
func NewJobProvider(connections connection.Repository, syncer *ConnectionSyncer, environment string) *JobProvider {
	return &JobProvider{connections: connections, syncer: syncer, environment: environment}
}

// Jobs enumerates eligible connections. A store error here is a batch-level
// failure and aborts the run.
func (p *JobProvider) Jobs(ctx context.Context) ([]*ConnectionSyncJob, error) {
	if p.environment == "" {
		return nil, fmt.Errorf("job provider environment is required")
	}

	conns, err := p.connections.ListByEnvironment(ctx, p.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	jobs := make([]*ConnectionSyncJob, 0, len(conns))
	for _, conn := range conns {
		if !conn.Syncable() {
			log.Printf("Job provider: skipping connection %s (status %s)", conn.ID, conn.Status)
			continue
		}
		jobs = append(jobs, NewConnectionSyncJob(conn, p.syncer))
	}
	return jobs, nil
}
