package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const invoiceSuggestion = "Please check your server configuration and try again"

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// InvoiceErrorResponse is the failure body of the invoice endpoints.
type InvoiceErrorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondInvoiceError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, InvoiceErrorResponse{
		Error:      message,
		Suggestion: invoiceSuggestion,
	})
}
