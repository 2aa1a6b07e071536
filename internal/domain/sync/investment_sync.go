package sync

import (
	"context"
	"fmt"
	"log"

	"tern/internal/domain/account"
	"tern/internal/domain/connection"
	"tern/internal/domain/investment"
	"tern/internal/domain/syncstate"
	"tern/internal/infrastructure/aggregator"
)

// InvestmentSyncResult summarizes one connection's holdings sync.
type InvestmentSyncResult struct {
	ConnectionID    string
	AccountsSynced  int
	AccountsFailed  int
	HoldingsApplied int
	Errors          []string
}

// InvestmentSyncService reconciles holdings for every investment account
// under a connection from a single full-snapshot fetch. There is no cursor:
// each account's holdings are replaced wholesale, and an error just means
// the whole snapshot is retried next run.
type InvestmentSyncService struct {
	client      aggregator.ClientInterface
	directory   *account.Service
	holdingRepo investment.Repository
	states      syncstate.Repository
}

// NewInvestmentSyncService creates a new investment sync service.
func NewInvestmentSyncService(
	client aggregator.ClientInterface,
	directory *account.Service,
	holdingRepo investment.Repository,
	states syncstate.Repository,
) *InvestmentSyncService {
	return &InvestmentSyncService{
		client:      client,
		directory:   directory,
		holdingRepo: holdingRepo,
		states:      states,
	}
}

// SyncConnection fetches the holdings snapshot once and reconciles each
// investment account independently. One account's write failure marks only
// that account error; holdings already committed for sibling accounts stay.
func (s *InvestmentSyncService) SyncConnection(ctx context.Context, conn *connection.Connection) (*InvestmentSyncResult, error) {
	result := &InvestmentSyncResult{ConnectionID: conn.ID}

	accounts, err := s.directory.ListInvestmentAccounts(ctx, conn.ID)
	if err != nil {
		return result, err
	}
	if len(accounts) == 0 {
		return result, nil
	}

	snapshot, err := s.client.FetchHoldings(ctx, conn.AccessToken)
	if err != nil {
		// The fetch covers every account, so the failure is recorded on
		// each of them. GetOrCreate first: on a first-ever sync there is
		// no state row yet for MarkError to land on.
		for _, acct := range accounts {
			if _, stateErr := s.states.GetOrCreate(ctx, acct.ID, syncstate.DomainInvestments); stateErr != nil {
				log.Printf("Failed to create sync state for account %s: %v", acct.ID, stateErr)
			}
			s.recordError(ctx, acct.ID, err)
			result.AccountsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", acct.ID, err))
		}
		return result, err
	}

	byAccount := partitionHoldings(snapshot)
	securities := indexSecurities(snapshot.Securities)

	for _, acct := range accounts {
		// A missing key is an empty set: the account liquidated everything.
		applied, err := s.syncAccount(ctx, acct, byAccount[acct.ID], securities)
		if err != nil {
			result.AccountsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("account %s: %v", acct.ID, err))
			log.Printf("Connection %s: holdings sync failed for account %s: %v", conn.ID, acct.ID, err)
			continue
		}
		result.AccountsSynced++
		result.HoldingsApplied += applied
	}

	log.Printf("Connection %s: holdings sync complete - accounts ok=%d failed=%d holdings=%d",
		conn.ID, result.AccountsSynced, result.AccountsFailed, result.HoldingsApplied)

	return result, nil
}

// syncAccount replaces one account's holdings wholesale and advances its
// sync state.
func (s *InvestmentSyncService) syncAccount(ctx context.Context, acct *account.Account, apiHoldings []aggregator.Holding, securities map[string]aggregator.Security) (int, error) {
	if _, err := s.states.GetOrCreate(ctx, acct.ID, syncstate.DomainInvestments); err != nil {
		return 0, fmt.Errorf("failed to load sync state: %w", err)
	}
	if err := s.states.BeginSync(ctx, acct.ID, syncstate.DomainInvestments); err != nil {
		return 0, err
	}

	holdings := make([]investment.Holding, 0, len(apiHoldings))
	for _, h := range apiHoldings {
		converted, err := convertHolding(acct.ID, h, securities)
		if err != nil {
			s.recordError(ctx, acct.ID, err)
			return 0, err
		}
		holdings = append(holdings, converted)
	}

	if err := s.holdingRepo.ReplaceForAccount(ctx, acct.ID, holdings); err != nil {
		err = fmt.Errorf("failed to replace holdings: %w", err)
		s.recordError(ctx, acct.ID, err)
		return 0, err
	}

	if err := s.states.Checkpoint(ctx, acct.ID, syncstate.DomainInvestments, nil, int64(len(holdings))); err != nil {
		err = fmt.Errorf("failed to checkpoint: %w", err)
		s.recordError(ctx, acct.ID, err)
		return 0, err
	}
	if err := s.states.MarkComplete(ctx, acct.ID, syncstate.DomainInvestments); err != nil {
		return 0, fmt.Errorf("failed to mark sync complete: %w", err)
	}

	return len(holdings), nil
}

func (s *InvestmentSyncService) recordError(ctx context.Context, accountID string, cause error) {
	if err := s.states.MarkError(ctx, accountID, syncstate.DomainInvestments, cause.Error()); err != nil {
		log.Printf("Failed to record sync error for account %s: %v", accountID, err)
	}
}

func partitionHoldings(snapshot *aggregator.HoldingsResponse) map[string][]aggregator.Holding {
	byAccount := make(map[string][]aggregator.Holding)
	for _, h := range snapshot.Holdings {
		byAccount[h.AccountID] = append(byAccount[h.AccountID], h)
	}
	return byAccount
}

func indexSecurities(securities []aggregator.Security) map[string]aggregator.Security {
	index := make(map[string]aggregator.Security, len(securities))
	for _, s := range securities {
		index[s.ID] = s
	}
	return index
}

func convertHolding(accountID string, h aggregator.Holding, securities map[string]aggregator.Security) (investment.Holding, error) {
	quantity, err := h.GetQuantity()
	if err != nil {
		return investment.Holding{}, err
	}
	costBasis, err := h.GetCostBasis()
	if err != nil {
		return investment.Holding{}, err
	}
	price, err := h.GetPrice()
	if err != nil {
		return investment.Holding{}, err
	}
	priceAsOf, err := h.GetPriceAsOf()
	if err != nil {
		return investment.Holding{}, err
	}

	sec := securities[h.SecurityID]
	return investment.Holding{
		AccountID:  accountID,
		SecurityID: h.SecurityID,
		Symbol:     sec.Symbol,
		Name:       sec.Name,
		Quantity:   quantity,
		CostBasis:  costBasis,
		Price:      price,
		PriceAsOf:  priceAsOf,
	}, nil
}
