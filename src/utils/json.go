package utils

import (
	"encoding/json"
	"net/http"
)

// JSONErrorResponse is the error payload shape for every API error.
type JSONErrorResponse struct {
	Error string `json:"error"`
}

// SendJSON writes a JSON response with the given status code.
func SendJSON(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// SendJSONError writes a JSON error response with the given status code.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	SendJSON(w, JSONErrorResponse{Error: message}, statusCode)
}
