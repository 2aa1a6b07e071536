package budget

import (
	"context"
	"errors"
)

// ErrJobAlreadyRunning is returned by TryMarkProcessing when the budget is
// already processing. The processing status is the exclusion lock: a second
// trigger must not start a concurrent run.
var ErrJobAlreadyRunning = errors.New("categorization job already running for budget")

// Repository defines storage operations for budgets.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Budget, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Budget, error)

	// TryMarkProcessing atomically transitions the budget to processing.
	// Returns ErrJobAlreadyRunning if it is already processing.
	TryMarkProcessing(ctx context.Context, id string) error

	// MarkReady records a successful run, overwriting the prior result.
	MarkReady(ctx context.Context, id string, matched int) error

	// MarkError records a failed run with its message.
	MarkError(ctx context.Context, id string, message string) error
}
