// Package budget implements budgets and the background categorization job
// that matches transactions against them.
package budget

import "time"

// JobStatus is the lifecycle of a budget's background processing:
//
//	idle → processing → ready
//	                  ↘ error
//
// Only the job runner mutates it; readers poll it to report progress
// without blocking.
type JobStatus string

const (
	StatusIdle       JobStatus = "idle"
	StatusProcessing JobStatus = "processing"
	StatusReady      JobStatus = "ready"
	StatusError      JobStatus = "error"
)

// StaleProcessingAge is how long a budget may sit in processing before the
// run is presumed dead and a new trigger may take the lock over. Runs are
// bounded by jobTimeout, which is well inside this window.
const StaleProcessingAge = 15 * time.Minute

// Budget is a job-bearing entity: a set of free-text matching rules plus the
// categories they map to, with the processing status of its last
// categorization run.
type Budget struct {
	ID           string // uuid
	UserID       int64
	Name         string
	Rules        string // criteria handed to the categorization model
	Categories   []string
	Status       JobStatus
	ErrorMessage *string
	MatchedCount int
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
