package account

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines storage operations for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	ListByConnectionID(ctx context.Context, connectionID string) ([]*Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
}
