package connection

import "context"

// Repository is the persistence port for connections.
type Repository interface {
	// GetByID returns the connection or nil when not found.
	GetByID(ctx context.Context, id string) (*Connection, error)

	// ListByEnvironment returns all connections in one aggregator
	// environment, regardless of status.
	ListByEnvironment(ctx context.Context, environment string) ([]*Connection, error)

	// MarkNeedsReauth flags the connection so syncs skip it until the user
	// relinks.
	MarkNeedsReauth(ctx context.Context, id string) error
}
