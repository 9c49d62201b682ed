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

// SubscriptionHandler exposes recurring-charge detection and the tracked
// subscription list.
type SubscriptionHandler struct {
	subService *services.SubscriptionService
}

// NewSubscriptionHandler builds a SubscriptionHandler.
func NewSubscriptionHandler(subService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService}
}

// HandleDetect returns inferred recurring charges.
func (h *SubscriptionHandler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	detected, err := h.subService.Detect()
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, detected, http.StatusOK)
}

// HandleList returns tracked subscriptions.
func (h *SubscriptionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subService.List(r.URL.Query().Get("include_dismissed") == "true")
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, subs, http.StatusOK)
}

// HandleConfirm persists a detection as a tracked subscription.
func (h *SubscriptionHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Detected models.DetectedSubscription `json:"detected"`
		Category models.Category             `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub, err := h.subService.Confirm(req.Detected, req.Category)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, sub, http.StatusCreated)
}

// HandleDismiss records a detection as "not a subscription".
func (h *SubscriptionHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Detected models.DetectedSubscription `json:"detected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.subService.Dismiss(req.Detected); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdate edits a tracked subscription.
func (h *SubscriptionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	var sub models.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sub.ID = id
	if err := h.subService.Update(&sub); err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, sub, http.StatusOK)
}

// HandleDelete removes a tracked subscription.
func (h *SubscriptionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid subscription id", http.StatusBadRequest)
		return
	}
	if err := h.subService.Delete(id); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
