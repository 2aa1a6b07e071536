package budget

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tern/internal/domain/transaction"
)

const (
	jobTimeout         = 5 * time.Minute
	uncategorizedBatch = 200
)

// CategorizedTransaction is one model-assigned category for a transaction.
type CategorizedTransaction struct {
	TransactionID string
	Category      string
}

// Categorizer is the AI collaborator that assigns categories to
// transactions given a budget's rules. Called only from the background job,
// never from the sync engines.
type Categorizer interface {
	Categorize(ctx context.Context, txs []*transaction.Transaction, rules string) ([]CategorizedTransaction, error)
}

// Service runs categorization as fire-and-forget background jobs. The
// trigger call returns once the budget is marked processing; completion is
// observed only through the persisted status record.
type Service struct {
	repo        Repository
	txRepo      transaction.Repository
	categorizer Categorizer
}

// NewService creates a new budget service.
func NewService(repo Repository, txRepo transaction.Repository, categorizer Categorizer) *Service {
	return &Service{repo: repo, txRepo: txRepo, categorizer: categorizer}
}

// StartCategorization marks the budget processing and kicks off the run on
// its own goroutine. Returns ErrJobAlreadyRunning if a run is in flight;
// callers translate that to a rejection, not a queue.
func (s *Service) StartCategorization(ctx context.Context, budgetID string) error {
	b, err := s.repo.GetByID(ctx, budgetID)
	if err != nil {
		return fmt.Errorf("failed to load budget %s: %w", budgetID, err)
	}
	if b == nil {
		return fmt.Errorf("budget %s not found", budgetID)
	}

	// The processing status is the lock; commit it before detaching.
	if err := s.repo.TryMarkProcessing(ctx, budgetID); err != nil {
		return err
	}

	go s.run(b)
	return nil
}

// TriggerForUser starts a categorization run for each of the user's
// budgets. Used by the sync engine after inserting new transactions;
// best-effort, already-running budgets are skipped.
func (s *Service) TriggerForUser(ctx context.Context, userID int64) {
	budgets, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		log.Printf("Failed to list budgets for user %d: %v", userID, err)
		return
	}
	for _, b := range budgets {
		if err := s.StartCategorization(ctx, b.ID); err != nil {
			if errors.Is(err, ErrJobAlreadyRunning) {
				continue
			}
			log.Printf("Failed to trigger categorization for budget %s: %v", b.ID, err)
		}
	}
}

// run executes the categorization pass. It is detached from the triggering
// request, so it derives its own context.
func (s *Service) run(b *Budget) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log.Printf("Budget %s: categorization started", b.ID)

	matched, err := s.categorize(ctx, b)
	if err != nil {
		log.Printf("Budget %s: categorization failed: %v", b.ID, err)
		if markErr := s.repo.MarkError(ctx, b.ID, err.Error()); markErr != nil {
			log.Printf("Budget %s: failed to record job error: %v", b.ID, markErr)
		}
		return
	}

	if err := s.repo.MarkReady(ctx, b.ID, matched); err != nil {
		log.Printf("Budget %s: failed to mark job ready: %v", b.ID, err)
		return
	}
	log.Printf("Budget %s: categorization ready, %d transactions matched", b.ID, matched)
}

// categorize fetches uncategorized transactions, asks the model, and writes
// the categories back. Results overwrite prior category assignments, so
// re-running for the same budget is safe.
func (s *Service) categorize(ctx context.Context, b *Budget) (int, error) {
	txs, err := s.txRepo.ListUncategorizedByUserID(ctx, b.UserID, uncategorizedBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list uncategorized transactions: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	results, err := s.categorizer.Categorize(ctx, txs, b.Rules)
	if err != nil {
		return 0, fmt.Errorf("categorization model call failed: %w", err)
	}

	inBudget := make(map[string]bool, len(b.Categories))
	for _, c := range b.Categories {
		inBudget[c] = true
	}

	matched := 0
	for _, r := range results {
		if r.Category == "" {
			continue
		}
		if err := s.txRepo.UpdateCategory(ctx, r.TransactionID, r.Category); err != nil {
			return matched, fmt.Errorf("failed to write category for transaction %s: %w", r.TransactionID, err)
		}
		if inBudget[r.Category] {
			matched++
		}
	}
	return matched, nil
}
