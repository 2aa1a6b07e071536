package postgres

import (
	"context"
	"fmt"

	"tern/internal/domain/investment"
)

// HoldingRepository implements investment.Repository.
type HoldingRepository struct {
	db *DB
}

var _ investment.Repository = (*HoldingRepository)(nil)

func NewHoldingRepository(db *DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// ReplaceForAccount swaps the account's holdings inside one database
// transaction so readers never see a partially replaced set. An empty slice
// deletes everything, which is the full-liquidation case.
func (r *HoldingRepository) ReplaceForAccount(ctx context.Context, accountID string, holdings []investment.Holding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	insert := `
		INSERT INTO holdings (account_id, security_id, symbol, name, quantity, cost_basis, price, price_as_of, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	for _, h := range holdings {
		_, err := tx.ExecContext(ctx, insert,
			accountID, h.SecurityID, h.Symbol, h.Name,
			h.Quantity, h.CostBasis, h.Price, h.PriceAsOf,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.SecurityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holdings replace: %w", err)
	}
	return nil
}

func (r *HoldingRepository) ListByAccountID(ctx context.Context, accountID string) ([]*investment.Holding, error) {
	query := `
		SELECT account_id, security_id, symbol, name, quantity, cost_basis, price, price_as_of, updated_at
		FROM holdings
		WHERE account_id = $1
		ORDER BY symbol
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*investment.Holding
	for rows.Next() {
		var h investment.Holding
		err := rows.Scan(
			&h.AccountID, &h.SecurityID, &h.Symbol, &h.Name,
			&h.Quantity, &h.CostBasis, &h.Price, &h.PriceAsOf, &h.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}
