package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// DuplicateHandler exposes duplicate detection and resolution.
type DuplicateHandler struct {
	dupService *services.DuplicateService
}

// NewDuplicateHandler builds a DuplicateHandler.
func NewDuplicateHandler(dupService *services.DuplicateService) *DuplicateHandler {
	return &DuplicateHandler{dupService: dupService}
}

// HandleDetect returns likely duplicate groups.
func (h *DuplicateHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	groups, err := h.dupService.Detect()
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, groups, http.StatusOK)
}

// HandleExclude resolves a duplicate by excluding one of its transactions.
func (h *DuplicateHandler) HandleExclude(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	if err := h.dupService.Exclude(id); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleInclude reverses a duplicate exclusion.
func (h *DuplicateHandler) HandleInclude(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}
	if err := h.dupService.Include(id); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDismiss marks a group as "not duplicates".
func (h *DuplicateHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionIDs []int64 `json:"transaction_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.dupService.Dismiss(req.TransactionIDs); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
