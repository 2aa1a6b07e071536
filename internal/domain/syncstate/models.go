// Package syncstate tracks per-account sync progress: cursor, status,
// counters and the last error. It is the durable checkpoint record that
// makes syncs resumable.
package syncstate

import "time"

// Domain identifies which kind of data a sync state row tracks. Transactions
// and investments are tracked independently per account.
type Domain string

const (
	DomainTransactions Domain = "transactions"
	DomainInvestments  Domain = "investments"
)

// Status is the lifecycle of one sync state row.
//
//	pending → syncing → complete
//	                  ↘ error
//
// An error preserves the last checkpointed cursor so the next attempt
// resumes from the same point.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSyncing  Status = "syncing"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// StaleSyncingAge is how long a syncing row may go without a checkpoint
// before it is treated as abandoned by a dead process and its lock becomes
// takeable. Checkpoint bumps updated_at every page, so a live sync never
// ages past this.
const StaleSyncingAge = 15 * time.Minute

// SyncState is the per-(account, domain) progress record. Exactly one row
// exists per pair; it is created lazily before the first attempt and removed
// only when the account itself is removed.
type SyncState struct {
	AccountID    string
	Domain       Domain
	Cursor       *string // nil until the first successful page
	Status       Status
	ErrorMessage *string // set only while Status == error
	TotalSynced  int64   // records applied, monotonically increasing
	LastSyncedAt *time.Time
	UpdatedAt    time.Time
}

// HasCursor reports whether a resumption point has been checkpointed.
func (s *SyncState) HasCursor() bool {
	return s.Cursor != nil && *s.Cursor != ""
}
