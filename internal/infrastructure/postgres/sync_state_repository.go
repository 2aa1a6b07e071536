package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tern/internal/domain/syncstate"
)

// SyncStateRepository implements syncstate.Repository.
type SyncStateRepository struct {
	db *DB
}

var _ syncstate.Repository = (*SyncStateRepository)(nil)

func NewSyncStateRepository(db *DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

const syncStateColumns = `account_id, domain, cursor, status, error_message, total_synced, last_synced_at, updated_at`

func scanSyncState(scanner interface{ Scan(...any) error }) (*syncstate.SyncState, error) {
	var state syncstate.SyncState
	var cursor, errorMessage sql.NullString
	var lastSyncedAt sql.NullTime

	err := scanner.Scan(
		&state.AccountID, &state.Domain, &cursor, &state.Status,
		&errorMessage, &state.TotalSynced, &lastSyncedAt, &state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cursor.Valid {
		state.Cursor = &cursor.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}
	if lastSyncedAt.Valid {
		state.LastSyncedAt = &lastSyncedAt.Time
	}
	return &state, nil
}

// GetOrCreate inserts the row in pending on first use; a concurrent insert
// loses the race harmlessly via ON CONFLICT DO NOTHING.
func (r *SyncStateRepository) GetOrCreate(ctx context.Context, accountID string, domain syncstate.Domain) (*syncstate.SyncState, error) {
	insert := `
		INSERT INTO sync_states (account_id, domain, status, total_synced, updated_at)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (account_id, domain) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, accountID, domain, syncstate.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to create sync state: %w", err)
	}
	return r.Get(ctx, accountID, domain)
}

func (r *SyncStateRepository) Get(ctx context.Context, accountID string, domain syncstate.Domain) (*syncstate.SyncState, error) {
	query := `SELECT ` + syncStateColumns + ` FROM sync_states WHERE account_id = $1 AND domain = $2`

	state, err := scanSyncState(r.db.QueryRowContext(ctx, query, accountID, domain))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return state, nil
}

func (r *SyncStateRepository) ListByConnectionID(ctx context.Context, connectionID string) ([]*syncstate.SyncState, error) {
	query := `
		SELECT s.account_id, s.domain, s.cursor, s.status, s.error_message, s.total_synced, s.last_synced_at, s.updated_at
		FROM sync_states s
		JOIN accounts a ON a.id = s.account_id
		WHERE a.connection_id = $1
		ORDER BY s.account_id, s.domain
	`

	rows, err := r.db.QueryContext(ctx, query, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync states: %w", err)
	}
	defer rows.Close()

	var states []*syncstate.SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// BeginSync is the mutual-exclusion transition: the WHERE clause makes the
// pending/complete/error → syncing move a compare-and-set, so a concurrent
// sync of the same (account, domain) loses and gets ErrSyncInProgress. A
// syncing row whose updated_at is older than StaleSyncingAge was abandoned
// by a crashed process (a live sync checkpoints every page) and may be
// taken over; its cursor is untouched, so the takeover resumes from the
// last checkpoint.
func (r *SyncStateRepository) BeginSync(ctx context.Context, accountID string, domain syncstate.Domain) error {
	query := `
		UPDATE sync_states
		SET status = $3, updated_at = NOW()
		WHERE account_id = $1 AND domain = $2
		  AND (status <> $3 OR updated_at < NOW() - make_interval(secs => $4))
	`

	result, err := r.db.ExecContext(ctx, query, accountID, domain, syncstate.StatusSyncing, syncstate.StaleSyncingAge.Seconds())
	if err != nil {
		return fmt.Errorf("failed to begin sync: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to begin sync: %w", err)
	}
	if affected == 0 {
		return syncstate.ErrSyncInProgress
	}
	return nil
}

// Checkpoint persists mid-sync progress. COALESCE keeps the existing cursor
// for snapshot domains that pass nil.
func (r *SyncStateRepository) Checkpoint(ctx context.Context, accountID string, domain syncstate.Domain, cursor *string, applied int64) error {
	query := `
		UPDATE sync_states
		SET cursor = COALESCE($3, cursor), total_synced = total_synced + $4, updated_at = NOW()
		WHERE account_id = $1 AND domain = $2
	`

	if _, err := r.db.ExecContext(ctx, query, accountID, domain, cursor, applied); err != nil {
		return fmt.Errorf("failed to checkpoint sync state: %w", err)
	}
	return nil
}

func (r *SyncStateRepository) MarkComplete(ctx context.Context, accountID string, domain syncstate.Domain) error {
	query := `
		UPDATE sync_states
		SET status = $3, error_message = NULL, last_synced_at = NOW(), updated_at = NOW()
		WHERE account_id = $1 AND domain = $2
	`

	if _, err := r.db.ExecContext(ctx, query, accountID, domain, syncstate.StatusComplete); err != nil {
		return fmt.Errorf("failed to mark sync complete: %w", err)
	}
	return nil
}

// MarkError records the failure but leaves the cursor untouched so the next
// attempt resumes from the last checkpoint.
func (r *SyncStateRepository) MarkError(ctx context.Context, accountID string, domain syncstate.Domain, message string) error {
	query := `
		UPDATE sync_states
		SET status = $3, error_message = $4, updated_at = NOW()
		WHERE account_id = $1 AND domain = $2
	`

	if _, err := r.db.ExecContext(ctx, query, accountID, domain, syncstate.StatusError, message); err != nil {
		return fmt.Errorf("failed to mark sync error: %w", err)
	}
	return nil
}
