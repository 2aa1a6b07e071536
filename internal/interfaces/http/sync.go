// Package http holds the admin and diagnostic HTTP handlers.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"tern/internal/domain/sync"
	"tern/internal/domain/syncstate"
	"tern/internal/shared/cache"
)

// syncTriggerTimeout bounds detached on-demand syncs.
const syncTriggerTimeout = 10 * time.Minute

// SyncHandler exposes sync state reads and on-demand sync triggers.
type SyncHandler struct {
	states      syncstate.Repository
	syncer      *sync.ConnectionSyncer
	driver      *sync.BatchDriver
	environment string
	reports     *cache.TokenCache
}

// NewSyncHandler creates a new sync handler. reports may be nil to disable
// report downloads.
func NewSyncHandler(
	states syncstate.Repository,
	syncer *sync.ConnectionSyncer,
	driver *sync.BatchDriver,
	environment string,
	reports *cache.TokenCache,
) *SyncHandler {
	return &SyncHandler{
		states:      states,
		syncer:      syncer,
		driver:      driver,
		environment: environment,
		reports:     reports,
	}
}

// SyncStateResponse is one account's sync progress in one domain.
type SyncStateResponse struct {
	AccountID    string  `json:"accountId"`
	Domain       string  `json:"domain"`
	Status       string  `json:"status"`
	Cursor       *string `json:"cursor,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
	TotalSynced  int64   `json:"totalSynced"`
	LastSyncedAt *string `json:"lastSyncedAt,omitempty"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toSyncStateResponse(s *syncstate.SyncState) SyncStateResponse {
	resp := SyncStateResponse{
		AccountID:    s.AccountID,
		Domain:       string(s.Domain),
		Status:       string(s.Status),
		Cursor:       s.Cursor,
		ErrorMessage: s.ErrorMessage,
		TotalSynced:  s.TotalSynced,
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
	if s.LastSyncedAt != nil {
		formatted := s.LastSyncedAt.Format(time.RFC3339)
		resp.LastSyncedAt = &formatted
	}
	return resp
}

// HandleSyncStatus returns the per-account sync states for a connection.
func (h *SyncHandler) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		http.Error(w, "connection_id is required", http.StatusBadRequest)
		return
	}

	states, err := h.states.ListByConnectionID(r.Context(), connectionID)
	if err != nil {
		log.Printf("Error listing sync states for connection %s: %v", connectionID, err)
		http.Error(w, "Failed to list sync states", http.StatusInternalServerError)
		return
	}

	response := make([]SyncStateResponse, 0, len(states))
	for _, s := range states {
		response = append(response, toSyncStateResponse(s))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleSyncConnection triggers an on-demand sync for one connection. The
// sync runs detached; the response only acknowledges the trigger.
func (h *SyncHandler) HandleSyncConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	connectionID := r.PathValue("id")
	if connectionID == "" {
		http.Error(w, "Connection ID is required", http.StatusBadRequest)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTriggerTimeout)
		defer cancel()
		if err := h.syncer.SyncByID(ctx, connectionID); err != nil {
			log.Printf("On-demand sync for connection %s failed: %v", connectionID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "triggered", "connectionId": connectionID})
}

// HandleSyncBatch triggers an on-demand batch run across the configured
// environment. Fire-and-forget like the scheduled runs.
func (h *SyncHandler) HandleSyncBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTriggerTimeout)
		defer cancel()
		if _, err := h.driver.Run(ctx, h.environment); err != nil {
			log.Printf("On-demand batch sync failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "triggered", "environment": h.environment})
}

// SyncReport is a point-in-time snapshot of a connection's sync states,
// cached behind a short-lived download token.
type SyncReport struct {
	ConnectionID string              `json:"connectionId"`
	GeneratedAt  string              `json:"generatedAt"`
	States       []SyncStateResponse `json:"states"`
}

// HandleCreateReport builds a sync report and returns a one-time download
// token for it.
func (h *SyncHandler) HandleCreateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.reports == nil {
		http.Error(w, "Reports are disabled", http.StatusNotFound)
		return
	}

	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		http.Error(w, "connection_id is required", http.StatusBadRequest)
		return
	}

	states, err := h.states.ListByConnectionID(r.Context(), connectionID)
	if err != nil {
		log.Printf("Error building sync report for connection %s: %v", connectionID, err)
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	report := &SyncReport{
		ConnectionID: connectionID,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		States:       make([]SyncStateResponse, 0, len(states)),
	}
	for _, s := range states {
		report.States = append(report.States, toSyncStateResponse(s))
	}

	token := h.reports.Put(report)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// HandleDownloadReport serves a previously generated report. The token is
// consumed on download.
func (h *SyncHandler) HandleDownloadReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.reports == nil {
		http.Error(w, "Reports are disabled", http.StatusNotFound)
		return
	}

	token := r.PathValue("token")
	value, ok := h.reports.Take(token)
	if !ok {
		http.Error(w, "Report not found or expired", http.StatusNotFound)
		return
	}

	report, ok := value.(*SyncReport)
	if !ok {
		http.Error(w, "Report not found or expired", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
