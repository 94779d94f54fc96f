package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeLeadError maps leads package errors to HTTP statuses.
func writeLeadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leads.ErrLeadNotFound):
		writeError(w, http.StatusNotFound, "lead not found")
	case errors.Is(err, leads.ErrInvalidName),
		errors.Is(err, leads.ErrInvalidPhone),
		errors.Is(err, leads.ErrInvalidAddress),
		errors.Is(err, leads.ErrMissingSource),
		errors.Is(err, leads.ErrInvalidBill),
		errors.Is(err, leads.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
