package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tern/internal/domain/budget"
	"tern/internal/domain/transaction"
)

// MockBudgetRepo implements budget.Repository.
type MockBudgetRepo struct {
	GetByIDFunc           func(ctx context.Context, id string) (*budget.Budget, error)
	TryMarkProcessingFunc func(ctx context.Context, id string) error
	MarkReadyFunc         func(ctx context.Context, id string, matched int) error
}

func (m *MockBudgetRepo) GetByID(ctx context.Context, id string) (*budget.Budget, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockBudgetRepo) ListByUserID(ctx context.Context, userID int64) ([]*budget.Budget, error) {
	return nil, nil
}

func (m *MockBudgetRepo) TryMarkProcessing(ctx context.Context, id string) error {
	if m.TryMarkProcessingFunc != nil {
		return m.TryMarkProcessingFunc(ctx, id)
	}
	return nil
}

func (m *MockBudgetRepo) MarkReady(ctx context.Context, id string, matched int) error {
	if m.MarkReadyFunc != nil {
		return m.MarkReadyFunc(ctx, id, matched)
	}
	return nil
}

func (m *MockBudgetRepo) MarkError(ctx context.Context, id string, message string) error {
	return nil
}

type noopCategorizer struct{}

func (noopCategorizer) Categorize(ctx context.Context, txs []*transaction.Transaction, rules string) ([]budget.CategorizedTransaction, error) {
	return nil, nil
}

func testBudget(id string, status budget.JobStatus) *budget.Budget {
	return &budget.Budget{
		ID:         id,
		UserID:     1,
		Name:       "Food",
		Categories: []string{"groceries"},
		Status:     status,
	}
}

func TestHandleCategorize(t *testing.T) {
	tests := []struct {
		name           string
		budgetID       string
		mockRepo       *MockBudgetRepo
		expectedStatus int
	}{
		{
			name:     "Accepted",
			budgetID: "budget-1",
			mockRepo: &MockBudgetRepo{
				GetByIDFunc: func(ctx context.Context, id string) (*budget.Budget, error) {
					return testBudget(id, budget.StatusIdle), nil
				},
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:     "Already running",
			budgetID: "budget-1",
			mockRepo: &MockBudgetRepo{
				GetByIDFunc: func(ctx context.Context, id string) (*budget.Budget, error) {
					return testBudget(id, budget.StatusProcessing), nil
				},
				TryMarkProcessingFunc: func(ctx context.Context, id string) error {
					return budget.ErrJobAlreadyRunning
				},
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Unknown budget",
			budgetID:       "budget-missing",
			mockRepo:       &MockBudgetRepo{},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := budget.NewService(tt.mockRepo, stubTxRepo{}, noopCategorizer{})
			handler := NewBudgetHandler(service, tt.mockRepo)

			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/budgets/{id}/categorize", handler.HandleCategorize)

			req := httptest.NewRequest(http.MethodPost, "/api/budgets/"+tt.budgetID+"/categorize", nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleBudgetByID(t *testing.T) {
	message := "model overloaded"
	repo := &MockBudgetRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*budget.Budget, error) {
			if id != "budget-1" {
				return nil, nil
			}
			b := testBudget(id, budget.StatusError)
			b.ErrorMessage = &message
			b.MatchedCount = 4
			return b, nil
		},
	}
	service := budget.NewService(repo, stubTxRepo{}, noopCategorizer{})
	handler := NewBudgetHandler(service, repo)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/budgets/{id}", handler.HandleBudgetByID)

	req := httptest.NewRequest(http.MethodGet, "/api/budgets/budget-1", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp BudgetResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != string(budget.StatusError) || resp.ErrorMessage == nil || resp.MatchedCount != 4 {
		t.Errorf("unexpected response: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/budgets/budget-missing", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
