package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"tern/internal/domain/budget"
)

// BudgetRepository implements budget.Repository.
type BudgetRepository struct {
	db *DB
}

var _ budget.Repository = (*BudgetRepository)(nil)

func NewBudgetRepository(db *DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

const budgetColumns = `id, user_id, name, rules, categories, status, error_message, matched_count, processed_at, created_at, updated_at`

func scanBudget(scanner interface{ Scan(...any) error }) (*budget.Budget, error) {
	var b budget.Budget
	var errorMessage sql.NullString
	var processedAt sql.NullTime

	err := scanner.Scan(
		&b.ID, &b.UserID, &b.Name, &b.Rules, pq.Array(&b.Categories),
		&b.Status, &errorMessage, &b.MatchedCount, &processedAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if errorMessage.Valid {
		b.ErrorMessage = &errorMessage.String
	}
	if processedAt.Valid {
		b.ProcessedAt = &processedAt.Time
	}
	return &b, nil
}

func (r *BudgetRepository) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1`

	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return b, nil
}

func (r *BudgetRepository) ListByUserID(ctx context.Context, userID int64) ([]*budget.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*budget.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// TryMarkProcessing is the job exclusion lock: the WHERE clause rejects the
// transition when another run already holds processing. A processing row
// older than StaleProcessingAge belongs to a run that died without marking
// ready or error, and the lock becomes takeable.
func (r *BudgetRepository) TryMarkProcessing(ctx context.Context, id string) error {
	query := `
		UPDATE budgets
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		  AND (status <> $2 OR updated_at < NOW() - make_interval(secs => $3))
	`

	result, err := r.db.ExecContext(ctx, query, id, budget.StatusProcessing, budget.StaleProcessingAge.Seconds())
	if err != nil {
		return fmt.Errorf("failed to mark budget processing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark budget processing: %w", err)
	}
	if affected == 0 {
		return budget.ErrJobAlreadyRunning
	}
	return nil
}

func (r *BudgetRepository) MarkReady(ctx context.Context, id string, matched int) error {
	query := `
		UPDATE budgets
		SET status = $2, matched_count = $3, error_message = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, budget.StatusReady, matched); err != nil {
		return fmt.Errorf("failed to mark budget ready: %w", err)
	}
	return nil
}

func (r *BudgetRepository) MarkError(ctx context.Context, id string, message string) error {
	query := `
		UPDATE budgets
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, budget.StatusError, message); err != nil {
		return fmt.Errorf("failed to mark budget error: %w", err)
	}
	return nil
}
