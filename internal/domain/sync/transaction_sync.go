// Package sync implements the multi-account synchronization engine: the
// per-account incremental transaction sync, the per-connection holdings
// snapshot sync, and the batch driver that fans work out across connections.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tern/internal/domain/account"
	"tern/internal/domain/connection"
	"tern/internal/domain/syncstate"
	"tern/internal/domain/transaction"
	"tern/internal/infrastructure/aggregator"
)

// CategorizationTrigger kicks off background categorization after a sync
// inserted new transactions. Implemented by the budget service; the trigger
// returns immediately and the work runs detached.
type CategorizationTrigger interface {
	TriggerForUser(ctx context.Context, userID int64)
}

// TransactionSyncResult summarizes one connection's transaction sync.
type TransactionSyncResult struct {
	ConnectionID   string
	AccountsSynced int
	AccountsFailed int
	Applied        int // records applied across all accounts
	Created        int // newly inserted transactions
	Errors         []string
}

// TransactionSyncService drives each account's transaction changefeed to
// completion, checkpointing the cursor after every applied page.
type TransactionSyncService struct {
	client      aggregator.ClientInterface
	directory   *account.Service
	txRepo      transaction.Repository
	states      syncstate.Repository
	accountRepo account.Repository
	trigger     CategorizationTrigger // optional
}

// NewTransactionSyncService creates a new transaction sync service.
// trigger may be nil when categorization is disabled.
func NewTransactionSyncService(
	client aggregator.ClientInterface,
	directory *account.Service,
	txRepo transaction.Repository,
	states syncstate.Repository,
	accountRepo account.Repository,
	trigger CategorizationTrigger,
) *TransactionSyncService {
	return &TransactionSyncService{
		client:      client,
		directory:   directory,
		txRepo:      txRepo,
		states:      states,
		accountRepo: accountRepo,
		trigger:     trigger,
	}
}

// SyncConnection syncs transactions for every account under one connection.
// A single account's failure is recorded on its sync state and does not stop
// the remaining accounts. ErrUnauthorized from the aggregator aborts the
// whole connection since every account shares the same token.
func (s *TransactionSyncService) SyncConnection(ctx context.Context, conn *connection.Connection) (*TransactionSyncResult, error) {
	result := &TransactionSyncResult{ConnectionID: conn.ID}

	accounts, err := s.directory.ListByConnectionID(ctx, conn.ID)
	if err != nil {
		return result, err
	}

	for _, acct := range accounts {
		created, err := s.syncAccount(ctx, conn.AccessToken, acct)
		result.Created += created
		if err != nil {
			if errors.Is(err, aggregator.ErrUnauthorized) {
				return result, err
			}
			result.AccountsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", acct.ID, err))
			log.Printf("Connection %s: transaction sync failed for account %s: %v", conn.ID, acct.ID, err)
			continue
		}
		result.AccountsSynced++
	}

	log.Printf("Connection %s: transaction sync complete - accounts ok=%d failed=%d created=%d",
		conn.ID, result.AccountsSynced, result.AccountsFailed, result.Created)

	if s.trigger != nil && result.Created > 0 {
		s.trigger.TriggerForUser(ctx, conn.UserID)
	}

	return result, nil
}

// syncAccount drives one account's changefeed until has_more is false.
// Pages are applied then checkpointed strictly in feed order; the cursor is
// never advanced past data that was not durably applied, so a crash resumes
// from the last persisted cursor.
func (s *TransactionSyncService) syncAccount(ctx context.Context, accessToken string, acct *account.Account) (int, error) {
	state, err := s.states.GetOrCreate(ctx, acct.ID, syncstate.DomainTransactions)
	if err != nil {
		return 0, fmt.Errorf("failed to load sync state: %w", err)
	}

	if err := s.states.BeginSync(ctx, acct.ID, syncstate.DomainTransactions); err != nil {
		// Another routine owns this account; not a data error, so the
		// state row is left alone.
		return 0, err
	}

	cursor := ""
	if state.HasCursor() {
		cursor = *state.Cursor
	}

	created := 0
	for {
		page, err := s.client.FetchTransactionsPage(ctx, accessToken, acct.ID, cursor)
		if err != nil {
			s.recordError(ctx, acct.ID, err)
			return created, err
		}

		pageCreated, err := s.applyPage(ctx, acct.ID, page)
		created += pageCreated
		if err != nil {
			s.recordError(ctx, acct.ID, err)
			return created, err
		}

		// Data is committed; now the cursor may move.
		next := page.NextCursor
		if err := s.states.Checkpoint(ctx, acct.ID, syncstate.DomainTransactions, &next, int64(page.Size())); err != nil {
			err = fmt.Errorf("failed to checkpoint cursor: %w", err)
			s.recordError(ctx, acct.ID, err)
			return created, err
		}

		s.refreshBalance(ctx, acct.ID, page)

		cursor = next
		if !page.HasMore {
			break
		}
	}

	if err := s.states.MarkComplete(ctx, acct.ID, syncstate.DomainTransactions); err != nil {
		return created, fmt.Errorf("failed to mark sync complete: %w", err)
	}
	return created, nil
}

// applyPage writes one page's added, modified and removed records. Returns
// the number of newly created transactions.
func (s *TransactionSyncService) applyPage(ctx context.Context, accountID string, page *aggregator.TransactionsPage) (int, error) {
	created := 0

	upsert := func(apiTx aggregator.Transaction) error {
		amount, err := apiTx.GetAmount()
		if err != nil {
			return err
		}
		date, err := apiTx.GetDate()
		if err != nil {
			return err
		}

		var category *string
		if apiTx.Category != "" {
			category = &apiTx.Category
		}

		_, wasCreated, err := s.txRepo.Upsert(ctx, transaction.UpsertParams{
			ID:              apiTx.ID,
			AccountID:       accountID,
			Amount:          amount,
			Direction:       apiTx.Direction,
			Description:     apiTx.Description,
			Category:        category,
			TransactionDate: date,
			Pending:         apiTx.Pending,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %s: %w", apiTx.ID, err)
		}
		if wasCreated {
			created++
		}
		return nil
	}

	for _, apiTx := range page.Added {
		if err := upsert(apiTx); err != nil {
			return created, err
		}
	}
	for _, apiTx := range page.Modified {
		if err := upsert(apiTx); err != nil {
			return created, err
		}
	}
	for _, removed := range page.Removed {
		if err := s.txRepo.Delete(ctx, removed.ID); err != nil {
			return created, fmt.Errorf("failed to delete transaction %s: %w", removed.ID, err)
		}
	}

	return created, nil
}

// refreshBalance updates the account's current balance when a page reports
// one. Best-effort: a failure never fails the sync.
func (s *TransactionSyncService) refreshBalance(ctx context.Context, accountID string, page *aggregator.TransactionsPage) {
	balance, ok, err := page.GetAccountBalance()
	if err != nil {
		log.Printf("Account %s: ignoring unparseable balance: %v", accountID, err)
		return
	}
	if !ok {
		return
	}
	if err := s.accountRepo.UpdateBalance(ctx, accountID, balance); err != nil {
		log.Printf("Account %s: failed to refresh balance: %v", accountID, err)
	}
}

func (s *TransactionSyncService) recordError(ctx context.Context, accountID string, cause error) {
	if err := s.states.MarkError(ctx, accountID, syncstate.DomainTransactions, cause.Error()); err != nil {
		log.Printf("Failed to record sync error for account %s: %v", accountID, err)
	}
}
