package investment

import "context"

// Repository defines storage operations for holdings.
type Repository interface {
	// ReplaceForAccount swaps an account's holdings for the given set in a
	// single database transaction. An empty slice is a legitimate replace
	// (full liquidation), not a no-op.
	ReplaceForAccount(ctx context.Context, accountID string, holdings []Holding) error

	ListByAccountID(ctx context.Context, accountID string) ([]*Holding, error)
}
