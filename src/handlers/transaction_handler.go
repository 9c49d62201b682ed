package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// TransactionHandler exposes ledger reads and user edits: category
// overrides, exclusion, notes, splits, and recategorization.
type TransactionHandler struct {
	txService   *services.TransactionService
	ruleService *services.RuleService
}

// NewTransactionHandler builds a TransactionHandler.
func NewTransactionHandler(txService *services.TransactionService, ruleService *services.RuleService) *TransactionHandler {
	return &TransactionHandler{txService: txService, ruleService: ruleService}
}

func parseTransactionFilter(r *http.Request) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.AccountID = &id
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}
	if v := q.Get("category"); v != "" {
		cat := models.Category(v)
		filter.Category = &cat
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	filter.OnlyExpenses = q.Get("only_expenses") == "true"
	filter.IncludeExcluded = q.Get("include_excluded") == "true"
	return filter, nil
}

// HandleList returns transactions matching the query filters.
func (h *TransactionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTransactionFilter(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid filter parameters", http.StatusBadRequest)
		return
	}
	txns, err := h.txService.List(filter)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, txns, http.StatusOK)
}

func transactionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// HandleSetCategory records a manual category override.
func (h *TransactionHandler) HandleSetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	var req struct {
		Category models.Category `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.txService.SetCategory(id, req.Category); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetExcluded toggles exclusion.
func (h *TransactionHandler) HandleSetExcluded(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	var req struct {
		Excluded bool `json:"excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.txService.SetExcluded(id, req.Excluded); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetNotes replaces a transaction's notes.
func (h *TransactionHandler) HandleSetNotes(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.txService.SetNotes(id, req.Notes); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSplit divides a transaction into categorized parts.
func (h *TransactionHandler) HandleSplit(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	var req struct {
		Parts []models.SplitPart `json:"parts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	children, err := h.txService.Split(id, req.Parts)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, children, http.StatusCreated)
}

// HandleRecategorize re-runs categorization over every transaction without
// a manual category.
func (h *TransactionHandler) HandleRecategorize(w http.ResponseWriter, r *http.Request) {
	updated, err := h.ruleService.RecategorizeAll()
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, map[string]int{"updated": updated}, http.StatusOK)
}
