package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tern/internal/domain/connection"
	"tern/internal/domain/notification"
	"tern/internal/infrastructure/aggregator"
)

// ErrConnectionNotSyncable is returned when a sync is requested for a
// connection that is flagged for relink or has no token.
var ErrConnectionNotSyncable = errors.New("connection is not syncable")

// ConnectionSyncer runs the full sync for one connection: transactions
// first, then holdings best-effort. It owns the unauthorized-token and
// notification side effects so the batch driver stays a plain loop.
type ConnectionSyncer struct {
	transactions  *TransactionSyncService
	investments   *InvestmentSyncService
	connections   connection.Repository
	notifications *notification.Service // optional
}

// NewConnectionSyncer creates a new per-connection syncer. notifications may
// be nil.
func NewConnectionSyncer(
	transactions *TransactionSyncService,
	investments *InvestmentSyncService,
	connections connection.Repository,
	notifications *notification.Service,
) *ConnectionSyncer {
	return &ConnectionSyncer{
		transactions:  transactions,
		investments:   investments,
		connections:   connections,
		notifications: notifications,
	}
}

// SyncByID loads a connection and syncs it. Entry point for on-demand
// triggers.
func (s *ConnectionSyncer) SyncByID(ctx context.Context, connectionID string) error {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("failed to load connection %s: %w", connectionID, err)
	}
	if conn == nil {
		return fmt.Errorf("connection %s not found", connectionID)
	}
	return s.Sync(ctx, conn)
}

// Sync runs transaction sync, then investment sync. Investment failures are
// non-fatal to the connection's overall result: they are recorded on the
// affected accounts' sync states and logged. Transaction sync must finish
// (successfully or with recorded errors) before holdings are attempted.
func (s *ConnectionSyncer) Sync(ctx context.Context, conn *connection.Connection) error {
	if !conn.Syncable() {
		return fmt.Errorf("%w: %s (status %s)", ErrConnectionNotSyncable, conn.ID, conn.Status)
	}

	txResult, err := s.transactions.SyncConnection(ctx, conn)
	if err != nil {
		if errors.Is(err, aggregator.ErrUnauthorized) {
			s.handleUnauthorized(ctx, conn)
			return err
		}
		s.notifySyncFailed(ctx, conn, err.Error())
		return fmt.Errorf("transaction sync failed for connection %s: %w", conn.ID, err)
	}
	if txResult.AccountsFailed > 0 {
		s.notifySyncFailed(ctx, conn, txResult.Errors[0])
	}

	// Holdings are best-effort: a failure here never fails the connection.
	if _, err := s.investments.SyncConnection(ctx, conn); err != nil {
		if errors.Is(err, aggregator.ErrUnauthorized) {
			s.handleUnauthorized(ctx, conn)
			return nil
		}
		log.Printf("Connection %s: holdings sync error (non-fatal): %v", conn.ID, err)
	}

	return nil
}

// handleUnauthorized flags the connection and tells the user to relink.
func (s *ConnectionSyncer) handleUnauthorized(ctx context.Context, conn *connection.Connection) {
	log.Printf("Connection %s: aggregator rejected token - flagging for relink", conn.ID)
	if err := s.connections.MarkNeedsReauth(ctx, conn.ID); err != nil {
		log.Printf("Connection %s: failed to flag for relink: %v", conn.ID, err)
	}
	if s.notifications != nil {
		s.notifications.SendReauthRequired(ctx, conn.UserID, conn.InstitutionName)
	}
}

func (s *ConnectionSyncer) notifySyncFailed(ctx context.Context, conn *connection.Connection, reason string) {
	if s.notifications != nil {
		s.notifications.SendSyncFailed(ctx, conn.UserID, conn.InstitutionName, reason)
	}
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Environment string
	Attempted   int
	Succeeded   int
	Failed      int
	Skipped     int
	Errors      []string
}

// BatchDriver fans synchronization out across all eligible connections.
// Each invocation is one attempt per connection; retry policy is the
// scheduler's concern.
type BatchDriver struct {
	connections connection.Repository
	syncer      *ConnectionSyncer
}

// NewBatchDriver creates a new batch driver.
func NewBatchDriver(connections connection.Repository, syncer *ConnectionSyncer) *BatchDriver {
	return &BatchDriver{connections: connections, syncer: syncer}
}

// Run attempts every syncable connection in the environment. Per-connection
// errors are caught and recorded so the batch always attempts every
// connection. Configuration problems (empty environment, store unavailable)
// abort up front instead of iterating uselessly.
func (d *BatchDriver) Run(ctx context.Context, environment string) (*BatchResult, error) {
	if environment == "" {
		return nil, fmt.Errorf("batch environment filter is required")
	}

	conns, err := d.connections.ListByEnvironment(ctx, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections for %s: %w", environment, err)
	}

	result := &BatchResult{Environment: environment}
	log.Printf("Batch sync: %d connections in %s", len(conns), environment)

	for _, conn := range conns {
		if !conn.Syncable() {
			result.Skipped++
			continue
		}
		result.Attempted++
		if err := d.syncer.Sync(ctx, conn); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("connection %s: %v", conn.ID, err))
			log.Printf("Batch sync: connection %s failed: %v", conn.ID, err)
			continue
		}
		result.Succeeded++
	}

	log.Printf("Batch sync complete: attempted=%d ok=%d failed=%d skipped=%d",
		result.Attempted, result.Succeeded, result.Failed, result.Skipped)

	return result, nil
}
