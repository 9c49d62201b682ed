package handlers

import (
	"errors"
	"net/http"

	"github.com/username/fintrack/backend/src/services"
	"github.com/username/fintrack/backend/src/simplefin"
	"github.com/username/fintrack/backend/src/utils"
)

// sendServiceError maps service-layer errors to HTTP status codes.
func sendServiceError(w http.ResponseWriter, err error) {
	var authErr *simplefin.AuthError
	switch {
	case services.IsValidationError(err):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrSyncInProgress):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrInstitutionNotFound),
		errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrRuleNotFound),
		errors.Is(err, services.ErrSubscriptionNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &authErr):
		utils.SendJSONError(w, err.Error(), http.StatusBadGateway)
	default:
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}
