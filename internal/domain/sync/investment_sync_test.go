package sync

import (
	"context"
	"errors"
	"testing"

	"tern/internal/domain/account"
	"tern/internal/domain/investment"
	"tern/internal/domain/syncstate"
	"tern/internal/infrastructure/aggregator"
)

func testInvestmentAccount(id string) *account.Account {
	acct := testAccount(id)
	acct.Type = account.TypeInvestment
	acct.Name = "Brokerage"
	return acct
}

func apiHolding(accountID, securityID, quantity string) aggregator.Holding {
	return aggregator.Holding{
		AccountID:       accountID,
		SecurityID:      securityID,
		QuantityString:  quantity,
		CostBasisString: "100.00",
		PriceString:     "10.00",
		PriceAsOf:       "2026-08-30",
	}
}

func newInvestmentSyncFixture(client *MockAggregatorClient, accounts []*account.Account) (*InvestmentSyncService, *MockHoldingRepo, *MockSyncStateRepo) {
	accountRepo := &MockAccountRepo{
		ListByConnectionIDFunc: func(ctx context.Context, connectionID string) ([]*account.Account, error) {
			return accounts, nil
		},
	}
	holdings := NewMockHoldingRepo()
	states := NewMockSyncStateRepo()
	svc := NewInvestmentSyncService(client, account.NewService(accountRepo), holdings, states)
	return svc, holdings, states
}

func TestInvestmentSyncReplacesHoldingsPerAccount(t *testing.T) {
	client := &MockAggregatorClient{
		FetchHoldingsFunc: func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
			return &aggregator.HoldingsResponse{
				Holdings: []aggregator.Holding{
					apiHolding("acct-x", "sec-1", "5"),
					apiHolding("acct-x", "sec-2", "2.5"),
					apiHolding("acct-y", "sec-1", "1"),
				},
				Securities: []aggregator.Security{
					{ID: "sec-1", Symbol: "VTI", Name: "Total Market"},
					{ID: "sec-2", Symbol: "BND", Name: "Total Bond"},
				},
			}, nil
		},
	}

	svc, holdings, states := newInvestmentSyncFixture(client, []*account.Account{
		testInvestmentAccount("acct-x"),
		testInvestmentAccount("acct-y"),
	})

	// Stale position that the snapshot no longer carries.
	holdings.Holdings["acct-x"] = []investment.Holding{{AccountID: "acct-x", SecurityID: "sec-gone"}}

	result, err := svc.SyncConnection(context.Background(), testConnection())
	if err != nil {
		t.Fatalf("SyncConnection returned error: %v", err)
	}
	if result.AccountsSynced != 2 || result.AccountsFailed != 0 {
		t.Errorf("expected 2 synced / 0 failed, got %d / %d", result.AccountsSynced, result.AccountsFailed)
	}
	if result.HoldingsApplied != 3 {
		t.Errorf("expected 3 holdings applied, got %d", result.HoldingsApplied)
	}

	if got := len(holdings.Holdings["acct-x"]); got != 2 {
		t.Fatalf("expected acct-x to hold 2 positions, got %d", got)
	}
	for _, h := range holdings.Holdings["acct-x"] {
		if h.SecurityID == "sec-gone" {
			t.Error("stale position survived the replace")
		}
		if h.SecurityID == "sec-1" && h.Symbol != "VTI" {
			t.Errorf("expected security metadata joined, got symbol %q", h.Symbol)
		}
	}

	for _, id := range []string{"acct-x", "acct-y"} {
		state := states.State(id, syncstate.DomainInvestments)
		if state.Status != syncstate.StatusComplete {
			t.Errorf("expected %s complete, got %s", id, state.Status)
		}
		if state.Cursor != nil {
			t.Errorf("expected no cursor for snapshot domain, got %q", *state.Cursor)
		}
	}
}

func TestInvestmentSyncEmptySnapshotLiquidatesAccount(t *testing.T) {
	client := &MockAggregatorClient{
		FetchHoldingsFunc: func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
			return &aggregator.HoldingsResponse{}, nil
		},
	}

	svc, holdings, states := newInvestmentSyncFixture(client, []*account.Account{testInvestmentAccount("acct-x")})

	var replaced [][]investment.Holding
	holdings.ReplaceForAccountFunc = func(ctx context.Context, accountID string, hs []investment.Holding) error {
		replaced = append(replaced, hs)
		return nil
	}

	if _, err := svc.SyncConnection(context.Background(), testConnection()); err != nil {
		t.Fatalf("SyncConnection returned error: %v", err)
	}

	// An account absent from the snapshot gets an empty replace, not a skip.
	if len(replaced) != 1 || len(replaced[0]) != 0 {
		t.Fatalf("expected one empty replace, got %v", replaced)
	}
	if got := states.State("acct-x", syncstate.DomainInvestments).Status; got != syncstate.StatusComplete {
		t.Errorf("expected complete, got %s", got)
	}
}

func TestInvestmentSyncIsolatesWriteFailures(t *testing.T) {
	client := &MockAggregatorClient{
		FetchHoldingsFunc: func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
			return &aggregator.HoldingsResponse{
				Holdings: []aggregator.Holding{
					apiHolding("acct-x", "sec-1", "5"),
					apiHolding("acct-y", "sec-1", "1"),
				},
				Securities: []aggregator.Security{{ID: "sec-1", Symbol: "VTI"}},
			}, nil
		},
	}

	svc, holdings, states := newInvestmentSyncFixture(client, []*account.Account{
		testInvestmentAccount("acct-x"),
		testInvestmentAccount("acct-y"),
	})

	holdings.ReplaceForAccountFunc = func(ctx context.Context, accountID string, hs []investment.Holding) error {
		if accountID == "acct-x" {
			return errors.New("disk full")
		}
		holdings.Holdings[accountID] = hs
		return nil
	}

	result, err := svc.SyncConnection(context.Background(), testConnection())
	if err != nil {
		t.Fatalf("SyncConnection returned error: %v", err)
	}
	if result.AccountsSynced != 1 || result.AccountsFailed != 1 {
		t.Errorf("expected 1 synced / 1 failed, got %d / %d", result.AccountsSynced, result.AccountsFailed)
	}
	if got := states.State("acct-x", syncstate.DomainInvestments).Status; got != syncstate.StatusError {
		t.Errorf("expected acct-x error, got %s", got)
	}
	if got := states.State("acct-y", syncstate.DomainInvestments).Status; got != syncstate.StatusComplete {
		t.Errorf("expected acct-y complete, got %s", got)
	}
	if got := len(holdings.Holdings["acct-y"]); got != 1 {
		t.Errorf("expected acct-y holdings committed, got %d", got)
	}
}

func TestInvestmentSyncFetchFailureMarksEveryAccount(t *testing.T) {
	client := &MockAggregatorClient{
		FetchHoldingsFunc: func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
			return nil, errors.New("aggregator down")
		},
	}

	svc, _, states := newInvestmentSyncFixture(client, []*account.Account{
		testInvestmentAccount("acct-x"),
		testInvestmentAccount("acct-y"),
	})

	result, err := svc.SyncConnection(context.Background(), testConnection())
	if err == nil {
		t.Fatal("expected fetch error surfaced")
	}
	if result.AccountsFailed != 2 {
		t.Errorf("expected both accounts failed, got %d", result.AccountsFailed)
	}
	for _, id := range []string{"acct-x", "acct-y"} {
		state := states.State(id, syncstate.DomainInvestments)
		if state == nil || state.Status != syncstate.StatusError {
			t.Errorf("expected %s marked error, got %+v", id, state)
		}
	}
}

func TestInvestmentSyncSkipsNonInvestmentConnections(t *testing.T) {
	client := &MockAggregatorClient{
		FetchHoldingsFunc: func(ctx context.Context, accessToken string) (*aggregator.HoldingsResponse, error) {
			t.Error("holdings should not be fetched without investment accounts")
			return nil, nil
		},
	}

	svc, _, _ := newInvestmentSyncFixture(client, []*account.Account{testAccount("acct-checking")})

	result, err := svc.SyncConnection(context.Background(), testConnection())
	if err != nil {
		t.Fatalf("SyncConnection returned error: %v", err)
	}
	if result.AccountsSynced != 0 || result.AccountsFailed != 0 {
		t.Errorf("expected no-op result, got %+v", result)
	}
}
