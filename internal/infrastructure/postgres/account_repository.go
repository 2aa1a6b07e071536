package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"tern/internal/domain/account"
)

// AccountRepository implements account.Repository.
type AccountRepository struct {
	db *DB
}

var _ account.Repository = (*AccountRepository)(nil)

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, connection_id, user_id, name, type, subtype, currency_code, current_balance, created_at, updated_at`

func scanAccount(scanner interface{ Scan(...any) error }) (*account.Account, error) {
	var acct account.Account
	var subtype, currency sql.NullString

	err := scanner.Scan(
		&acct.ID, &acct.ConnectionID, &acct.UserID, &acct.Name,
		&acct.Type, &subtype, &currency, &acct.CurrentBalance,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acct.Subtype = subtype.String
	acct.CurrencyCode = currency.String
	return &acct, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

func (r *AccountRepository) ListByConnectionID(ctx context.Context, connectionID string) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE connection_id = $1 ORDER BY created_at`
	return r.list(ctx, query, connectionID)
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at`
	return r.list(ctx, query, userID)
}

func (r *AccountRepository) list(ctx context.Context, query string, arg any) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	query := `UPDATE accounts SET current_balance = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, balance); err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	return nil
}
