package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tern/internal/domain/account"
	"tern/internal/domain/connection"
	"tern/internal/domain/investment"
	"tern/internal/domain/syncstate"
	"tern/internal/domain/transaction"
	"tern/internal/infrastructure/aggregator"
)

// MockAggregatorClient implements aggregator.ClientInterface.
type MockAggregatorClient struct {
	FetchTransactionsPageFunc func(ctx context.Context, accessToken, accountID, cursor string) (*aggregator.TransactionsPage, error)
	FetchHoldingsFunc         func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error)
}

func (m *MockAggregatorClient) FetchTransactionsPage(ctx context.Context, accessToken, accountID, cursor string) (*aggregator.TransactionsPage, error) {
	if m.FetchTransactionsPageFunc != nil {
		return m.FetchTransactionsPageFunc(ctx, accessToken, accountID, cursor)
	}
	return &aggregator.TransactionsPage{}, nil
}

func (m *MockAggregatorClient) FetchHoldings(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
	if m.FetchHoldingsFunc != nil {
		return m.FetchHoldingsFunc(ctx, accessToken)
	}
	return &aggregator.HoldingsResponse{}, nil
}

// MockAccountRepo implements account.Repository.
type MockAccountRepo struct {
	GetByIDFunc            func(ctx context.Context, id string) (*account.Account, error)
	ListByConnectionIDFunc func(ctx context.Context, connectionID string) ([]*account.Account, error)
	ListByUserIDFunc       func(ctx context.Context, userID int64) ([]*account.Account, error)
	UpdateBalanceFunc      func(ctx context.Context, id string, balance decimal.Decimal) error
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*account.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAccountRepo) ListByConnectionID(ctx context.Context, connectionID string) ([]*account.Account, error) {
	if m.ListByConnectionIDFunc != nil {
		return m.ListByConnectionIDFunc(ctx, connectionID)
	}
	return nil, nil
}

func (m *MockAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAccountRepo) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, id, balance)
	}
	return nil
}

// MockTransactionRepo implements transaction.Repository over an in-memory
// map so tests can assert on the applied set.
type MockTransactionRepo struct {
	mu    sync.Mutex
	Store map[string]*transaction.Transaction

	UpsertFunc func(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, bool, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{Store: make(map[string]*transaction.Transaction)}
}

func (m *MockTransactionRepo) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.Store[params.ID]
	tx := &transaction.Transaction{
		ID:              params.ID,
		AccountID:       params.AccountID,
		Amount:          params.Amount,
		Direction:       params.Direction,
		Description:     params.Description,
		Category:        params.Category,
		TransactionDate: params.TransactionDate,
		Pending:         params.Pending,
	}
	m.Store[params.ID] = tx
	return tx, !existed, nil
}

func (m *MockTransactionRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Store, id)
	return nil
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Store[id], nil
}

func (m *MockTransactionRepo) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	return nil, nil
}

func (m *MockTransactionRepo) ListUncategorizedByUserID(ctx context.Context, userID int64, limit int) ([]*transaction.Transaction, error) {
	return nil, nil
}

func (m *MockTransactionRepo) UpdateCategory(ctx context.Context, id string, category string) error {
	return nil
}

// MockSyncStateRepo is an in-memory syncstate.Repository that mimics the
// compare-and-set semantics of the postgres implementation.
type MockSyncStateRepo struct {
	mu     sync.Mutex
	States map[string]*syncstate.SyncState

	BeginSyncFunc  func(ctx context.Context, accountID string, domain syncstate.Domain) error
	CheckpointFunc func(ctx context.Context, accountID string, domain syncstate.Domain, cursor *string, applied int64) error
}

func NewMockSyncStateRepo() *MockSyncStateRepo {
	return &MockSyncStateRepo{States: make(map[string]*syncstate.SyncState)}
}

func stateKey(accountID string, domain syncstate.Domain) string {
	return accountID + "|" + string(domain)
}

// State returns the tracked state for assertions.
func (m *MockSyncStateRepo) State(accountID string, domain syncstate.Domain) *syncstate.SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.States[stateKey(accountID, domain)]
}

func (m *MockSyncStateRepo) GetOrCreate(ctx context.Context, accountID string, domain syncstate.Domain) (*syncstate.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(accountID, domain)
	if st, ok := m.States[key]; ok {
		copied := *st
		return &copied, nil
	}
	st := &syncstate.SyncState{
		AccountID: accountID,
		Domain:    domain,
		Status:    syncstate.StatusPending,
		UpdatedAt: time.Now(),
	}
	m.States[key] = st
	copied := *st
	return &copied, nil
}

func (m *MockSyncStateRepo) Get(ctx context.Context, accountID string, domain syncstate.Domain) (*syncstate.SyncState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.States[stateKey(accountID, domain)]; ok {
		copied := *st
		return &copied, nil
	}
	return nil, nil
}

func (m *MockSyncStateRepo) ListByConnectionID(ctx context.Context, connectionID string) ([]*syncstate.SyncState, error) {
	return nil, nil
}

func (m *MockSyncStateRepo) BeginSync(ctx context.Context, accountID string, domain syncstate.Domain) error {
	if m.BeginSyncFunc != nil {
		return m.BeginSyncFunc(ctx, accountID, domain)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.States[stateKey(accountID, domain)]
	if !ok {
		return fmt.Errorf("sync state missing for %s/%s", accountID, domain)
	}
	if st.Status == syncstate.StatusSyncing && time.Since(st.UpdatedAt) < syncstate.StaleSyncingAge {
		return syncstate.ErrSyncInProgress
	}
	st.Status = syncstate.StatusSyncing
	st.UpdatedAt = time.Now()
	return nil
}

func (m *MockSyncStateRepo) Checkpoint(ctx context.Context, accountID string, domain syncstate.Domain, cursor *string, applied int64) error {
	if m.CheckpointFunc != nil {
		return m.CheckpointFunc(ctx, accountID, domain, cursor, applied)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.States[stateKey(accountID, domain)]
	if cursor != nil {
		c := *cursor
		st.Cursor = &c
	}
	st.TotalSynced += applied
	st.UpdatedAt = time.Now()
	return nil
}

func (m *MockSyncStateRepo) MarkComplete(ctx context.Context, accountID string, domain syncstate.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.States[stateKey(accountID, domain)]
	if !ok {
		return nil
	}
	st.Status = syncstate.StatusComplete
	st.ErrorMessage = nil
	st.UpdatedAt = time.Now()
	return nil
}

func (m *MockSyncStateRepo) MarkError(ctx context.Context, accountID string, domain syncstate.Domain, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.States[stateKey(accountID, domain)]
	if !ok {
		return nil
	}
	st.Status = syncstate.StatusError
	st.ErrorMessage = &message
	st.UpdatedAt = time.Now()
	return nil
}

// MockHoldingRepo implements investment.Repository over an in-memory map.
type MockHoldingRepo struct {
	mu       sync.Mutex
	Holdings map[string][]investment.Holding

	ReplaceForAccountFunc func(ctx context.Context, accountID string, holdings []investment.Holding) error
}

func NewMockHoldingRepo() *MockHoldingRepo {
	return &MockHoldingRepo{Holdings: make(map[string][]investment.Holding)}
}

func (m *MockHoldingRepo) ReplaceForAccount(ctx context.Context, accountID string, holdings []investment.Holding) error {
	if m.ReplaceForAccountFunc != nil {
		return m.ReplaceForAccountFunc(ctx, accountID, holdings)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Holdings[accountID] = holdings
	return nil
}

func (m *MockHoldingRepo) ListByAccountID(ctx context.Context, accountID string) ([]*investment.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*investment.Holding
	for i := range m.Holdings[accountID] {
		out = append(out, &m.Holdings[accountID][i])
	}
	return out, nil
}

// MockConnectionRepo implements connection.Repository.
type MockConnectionRepo struct {
	GetByIDFunc           func(ctx context.Context, id string) (*connection.Connection, error)
	ListByEnvironmentFunc func(ctx context.Context, environment string) ([]*connection.Connection, error)

	mu          sync.Mutex
	NeedsReauth []string
}

func (m *MockConnectionRepo) GetByID(ctx context.Context, id string) (*connection.Connection, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockConnectionRepo) ListByEnvironment(ctx context.Context, environment string) ([]*connection.Connection, error) {
	if m.ListByEnvironmentFunc != nil {
		return m.ListByEnvironmentFunc(ctx, environment)
	}
	return nil, nil
}

func (m *MockConnectionRepo) MarkNeedsReauth(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NeedsReauth = append(m.NeedsReauth, id)
	return nil
}
