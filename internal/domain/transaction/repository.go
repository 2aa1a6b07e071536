package transaction

import "context"

// Repository defines storage operations for transactions.
type Repository interface {
	// Upsert inserts or updates by the aggregator-assigned natural key.
	// created reports whether a new row was inserted.
	Upsert(ctx context.Context, params UpsertParams) (tx *Transaction, created bool, err error)

	// Delete removes a transaction the aggregator has retracted.
	// Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*Transaction, error)
	ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error)

	// ListUncategorizedByUserID returns transactions without a category,
	// oldest first, for the background categorization job.
	ListUncategorizedByUserID(ctx context.Context, userID int64, limit int) ([]*Transaction, error)

	// UpdateCategory overwrites the category assigned to a transaction.
	UpdateCategory(ctx context.Context, id string, category string) error
}
