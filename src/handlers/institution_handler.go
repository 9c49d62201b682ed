package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// InstitutionHandler exposes institution connection, listing, removal, and
// sync triggers.
type InstitutionHandler struct {
	syncService *services.SyncService
	store       services.LedgerStore
}

// NewInstitutionHandler builds an InstitutionHandler.
func NewInstitutionHandler(syncService *services.SyncService, store services.LedgerStore) *InstitutionHandler {
	return &InstitutionHandler{syncService: syncService, store: store}
}

// HandleConnect exchanges a setup token for a durable connection and runs
// the first sync.
func (h *InstitutionHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SetupToken string `json:"setup_token"`
		Name       string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SetupToken == "" {
		utils.SendJSONError(w, "setup_token is required", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = "New Institution"
	}

	inst, err := h.syncService.ConnectInstitution(r.Context(), req.SetupToken, req.Name)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, inst, http.StatusCreated)
}

// HandleList returns all institutions.
func (h *InstitutionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	institutions, err := h.store.ListInstitutions(false)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, institutions, http.StatusOK)
}

// HandleGet returns one institution with its accounts.
func (h *InstitutionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid institution id", http.StatusBadRequest)
		return
	}

	inst, accounts, err := h.syncService.InstitutionDetail(id)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, struct {
		Institution *models.Institution `json:"institution"`
		Accounts    []models.Account    `json:"accounts"`
	}{inst, accounts}, http.StatusOK)
}

// HandleDelete removes an institution and its accounts.
func (h *InstitutionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid institution id", http.StatusBadRequest)
		return
	}
	if err := h.syncService.RemoveInstitution(id); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func syncMode(r *http.Request) services.SyncMode {
	if r.URL.Query().Get("mode") == string(services.SyncQuick) {
		return services.SyncQuick
	}
	return services.SyncFull
}

// HandleSync triggers one institution's sync. ?mode=quick refreshes
// balances only.
func (h *InstitutionHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid institution id", http.StatusBadRequest)
		return
	}

	result := h.syncService.Sync(r.Context(), id, syncMode(r))
	if services.IsLockContention(result) {
		utils.SendJSON(w, result, http.StatusConflict)
		return
	}
	utils.SendJSON(w, result, http.StatusOK)
}

// HandleSyncAll triggers a sync of every active institution.
func (h *InstitutionHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	results := h.syncService.SyncAll(r.Context(), syncMode(r))
	utils.SendJSON(w, results, http.StatusOK)
}
