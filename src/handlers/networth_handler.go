package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// NetWorthHandler exposes the net worth history and backfill.
type NetWorthHandler struct {
	nwService *services.NetWorthService
}

// NewNetWorthHandler builds a NetWorthHandler.
func NewNetWorthHandler(nwService *services.NetWorthService) *NetWorthHandler {
	return &NetWorthHandler{nwService: nwService}
}

// HandleHistory returns recorded snapshots. ?days=N, default 365.
func (h *NetWorthHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	days := 365
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			utils.SendJSONError(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = parsed
	}
	snapshots, err := h.nwService.History(days)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, snapshots, http.StatusOK)
}

// HandleBackfill recomputes historical snapshots from balance history.
func (h *NetWorthHandler) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Days int `json:"days"`
	}{Days: 90}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	if req.Days <= 0 || req.Days > 3650 {
		utils.SendJSONError(w, "days must be between 1 and 3650", http.StatusBadRequest)
		return
	}

	written, err := h.nwService.Backfill(req.Days)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, map[string]int{"snapshots": written}, http.StatusOK)
}
