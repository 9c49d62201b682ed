package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/utils"
)

// RuleHandler exposes transaction-rule CRUD, dry-run testing, and
// retroactive application.
type RuleHandler struct {
	ruleService *services.RuleService
}

// NewRuleHandler builds a RuleHandler.
func NewRuleHandler(ruleService *services.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

func ruleID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// HandleList returns all rules in precedence order.
func (h *RuleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	rules, err := h.ruleService.ListRules()
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, rules, http.StatusOK)
}

// HandleCreate validates and creates a rule.
func (h *RuleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var params services.RuleParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rule, err := h.ruleService.CreateRule(params)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, rule, http.StatusCreated)
}

// HandleUpdate replaces a rule's fields.
func (h *RuleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid rule id", http.StatusBadRequest)
		return
	}
	var params services.RuleParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rule, err := h.ruleService.UpdateRule(id, params)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, rule, http.StatusOK)
}

// HandleDelete removes a rule.
func (h *RuleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid rule id", http.StatusBadRequest)
		return
	}
	if err := h.ruleService.DeleteRule(id); err != nil {
		sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApply re-runs one rule over existing transactions.
func (h *RuleHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid rule id", http.StatusBadRequest)
		return
	}
	updated, err := h.ruleService.ApplyRule(id)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, map[string]int{"updated": updated}, http.StatusOK)
}

// HandleTest evaluates an unsaved rule against recent transactions.
func (h *RuleHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	var params services.RuleParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	matched, err := h.ruleService.TestRule(params)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, matched, http.StatusOK)
}
