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

// AccountHandler exposes account listing and user edits.
type AccountHandler struct {
	store services.LedgerStore
}

// NewAccountHandler builds an AccountHandler.
func NewAccountHandler(store services.LedgerStore) *AccountHandler {
	return &AccountHandler{store: store}
}

// HandleList returns accounts. ?include_hidden=true includes hidden ones.
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	includeHidden := r.URL.Query().Get("include_hidden") == "true"
	accounts, err := h.store.GetAccounts(includeHidden)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

// HandleUpdate applies user edits: rename, retype, hide, balance override.
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid account id", http.StatusBadRequest)
		return
	}

	var req struct {
		Name           *string             `json:"name"`
		AccountType    *models.AccountType `json:"account_type"`
		CurrentBalance *float64            `json:"current_balance"`
		CreditLimit    *float64            `json:"credit_limit"`
		IsHidden       *bool               `json:"is_hidden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountType != nil && !models.ValidAccountType(*req.AccountType) {
		utils.SendJSONError(w, "Unknown account type", http.StatusBadRequest)
		return
	}

	update := services.AccountUpdate{
		Name:           req.Name,
		AccountType:    req.AccountType,
		CurrentBalance: req.CurrentBalance,
		CreditLimit:    req.CreditLimit,
		IsHidden:       req.IsHidden,
	}
	if err := h.store.UpdateAccount(id, update); err != nil {
		sendServiceError(w, err)
		return
	}
	acct, err := h.store.GetAccount(id)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, acct, http.StatusOK)
}

// HandleRemove deletes an account and excludes it from future syncs.
func (h *AccountHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid account id", http.StatusBadRequest)
		return
	}
	if err := h.store.RemoveAccount(id); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
