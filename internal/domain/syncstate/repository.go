package syncstate

import (
	"context"
	"errors"
)

// ErrSyncInProgress is returned by BeginSync when another routine already
// holds the syncing status for the same (account, domain).
var ErrSyncInProgress = errors.New("sync already in progress for account")

// Repository defines storage operations for sync states.
//
// Status transitions must be atomic at the row level: BeginSync is the
// mutual-exclusion mechanism that prevents two concurrent syncs of the same
// account.
type Repository interface {
	// GetOrCreate returns the row for (accountID, domain), creating it in
	// pending on first use.
	GetOrCreate(ctx context.Context, accountID string, domain Domain) (*SyncState, error)

	// Get returns the row, or nil if it has never been created.
	Get(ctx context.Context, accountID string, domain Domain) (*SyncState, error)

	// ListByConnectionID returns sync states for every account under a
	// connection, for diagnostic reads.
	ListByConnectionID(ctx context.Context, connectionID string) ([]*SyncState, error)

	// BeginSync transitions the row to syncing. It fails with
	// ErrSyncInProgress if the row is already syncing; the transition is a
	// compare-and-set so only one caller can win.
	BeginSync(ctx context.Context, accountID string, domain Domain) error

	// Checkpoint durably records progress mid-sync: the new cursor (nil for
	// snapshot domains) and the number of records applied since the last
	// checkpoint. Called only after the corresponding data writes committed.
	Checkpoint(ctx context.Context, accountID string, domain Domain, cursor *string, applied int64) error

	// MarkComplete ends a successful sync: status complete, error cleared,
	// lastSyncedAt set.
	MarkComplete(ctx context.Context, accountID string, domain Domain) error

	// MarkError records a failure message. The cursor is left untouched so
	// the next attempt resumes from the last checkpoint.
	MarkError(ctx context.Context, accountID string, domain Domain, message string) error
}
