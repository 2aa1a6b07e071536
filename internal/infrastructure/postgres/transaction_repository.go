package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tern/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository.
type TransactionRepository struct {
	db *DB
}

var _ transaction.Repository = (*TransactionRepository)(nil)

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, account_id, amount, direction, description, category, transaction_date, pending, created_at, updated_at`

func scanTransaction(scanner interface{ Scan(...any) error }) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	var category sql.NullString

	err := scanner.Scan(
		&tx.ID, &tx.AccountID, &tx.Amount, &tx.Direction, &tx.Description,
		&category, &tx.TransactionDate, &tx.Pending, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		tx.Category = &category.String
	}
	return &tx, nil
}

// Upsert inserts or updates by the aggregator-assigned id. The created flag
// comes from xmax = 0, which is true only for freshly inserted rows.
func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, bool, error) {
	query := `
		INSERT INTO transactions (id, account_id, amount, direction, description, category, transaction_date, pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			direction = EXCLUDED.direction,
			description = EXCLUDED.description,
			category = COALESCE(EXCLUDED.category, transactions.category),
			transaction_date = EXCLUDED.transaction_date,
			pending = EXCLUDED.pending,
			updated_at = NOW()
		RETURNING ` + transactionColumns + `, (xmax = 0) AS created
	`

	var tx transaction.Transaction
	var category sql.NullString
	var created bool

	err := r.db.QueryRowContext(
		ctx, query,
		params.ID, params.AccountID, params.Amount, params.Direction,
		params.Description, params.Category, params.TransactionDate, params.Pending,
	).Scan(
		&tx.ID, &tx.AccountID, &tx.Amount, &tx.Direction, &tx.Description,
		&category, &tx.TransactionDate, &tx.Pending, &tx.CreatedAt, &tx.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	if category.Valid {
		tx.Category = &category.String
	}
	return &tx, created, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, accountID, limit, offset)
}

func (r *TransactionRepository) ListUncategorizedByUserID(ctx context.Context, userID int64, limit int) ([]*transaction.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.amount, t.direction, t.description, t.category, t.transaction_date, t.pending, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1 AND t.category IS NULL
		ORDER BY t.transaction_date ASC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *TransactionRepository) UpdateCategory(ctx context.Context, id string, category string) error {
	query := `UPDATE transactions SET category = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, category); err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	return nil
}
