package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"tern/internal/domain/budget"
)

// BudgetHandler exposes the background categorization job: a trigger and a
// status poll. Completion is observed only through the persisted record.
type BudgetHandler struct {
	service *budget.Service
	repo    budget.Repository
}

// NewBudgetHandler creates a new budget handler.
func NewBudgetHandler(service *budget.Service, repo budget.Repository) *BudgetHandler {
	return &BudgetHandler{service: service, repo: repo}
}

// BudgetResponse is the job-status view of a budget.
type BudgetResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Categories   []string `json:"categories"`
	Status       string   `json:"status"`
	ErrorMessage *string  `json:"errorMessage,omitempty"`
	MatchedCount int      `json:"matchedCount"`
	ProcessedAt  *string  `json:"processedAt,omitempty"`
}

func toBudgetResponse(b *budget.Budget) BudgetResponse {
	resp := BudgetResponse{
		ID:           b.ID,
		Name:         b.Name,
		Categories:   b.Categories,
		Status:       string(b.Status),
		ErrorMessage: b.ErrorMessage,
		MatchedCount: b.MatchedCount,
	}
	if b.ProcessedAt != nil {
		formatted := b.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &formatted
	}
	return resp
}

// HandleCategorize starts the categorization job for a budget. Returns 409
// while a run is already in flight; the client polls the budget for the
// outcome.
func (h *BudgetHandler) HandleCategorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	budgetID := r.PathValue("id")
	if budgetID == "" {
		http.Error(w, "Budget ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.StartCategorization(r.Context(), budgetID); err != nil {
		if errors.Is(err, budget.ErrJobAlreadyRunning) {
			http.Error(w, "Categorization already running", http.StatusConflict)
			return
		}
		log.Printf("Error starting categorization for budget %s: %v", budgetID, err)
		http.Error(w, "Failed to start categorization", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "processing", "budgetId": budgetID})
}

// HandleBudgetByID returns a budget's job status.
func (h *BudgetHandler) HandleBudgetByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	budgetID := r.PathValue("id")
	if budgetID == "" {
		http.Error(w, "Budget ID is required", http.StatusBadRequest)
		return
	}

	b, err := h.repo.GetByID(r.Context(), budgetID)
	if err != nil {
		log.Printf("Error loading budget %s: %v", budgetID, err)
		http.Error(w, "Failed to load budget", http.StatusInternalServerError)
		return
	}
	if b == nil {
		http.Error(w, "Budget not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBudgetResponse(b))
}
