package main

import (
	"net/http"

	httphandlers "tern/internal/interfaces/http"
	"tern/internal/shared/config"
	"tern/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with
// middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Protected admin routes
	authMiddleware := middleware.Auth(cfg.JWT.Secret)

	mux.Handle("GET /api/sync/status", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleSyncStatus)))
	mux.Handle("POST /api/sync/connections/{id}", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleSyncConnection)))
	mux.Handle("POST /api/sync/batch", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleSyncBatch)))
	mux.Handle("POST /api/sync/reports", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleCreateReport)))
	mux.Handle("GET /api/sync/reports/{token}", authMiddleware(http.HandlerFunc(deps.SyncHandler.HandleDownloadReport)))

	if deps.BudgetHandler != nil {
		mux.Handle("POST /api/budgets/{id}/categorize", authMiddleware(http.HandlerFunc(deps.BudgetHandler.HandleCategorize)))
		mux.Handle("GET /api/budgets/{id}", authMiddleware(http.HandlerFunc(deps.BudgetHandler.HandleBudgetByID)))
	}

	return middleware.Logging(mux)
}
