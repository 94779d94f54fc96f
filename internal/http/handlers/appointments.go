package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rayfield/solar-ai-platform/internal/appointments"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// AppointmentsHandler serves the admin appointment endpoints.
type AppointmentsHandler struct {
	store  appointments.Store
	logger *logging.Logger
}

// NewAppointmentsHandler creates the handler.
func NewAppointmentsHandler(store appointments.Store, logger *logging.Logger) *AppointmentsHandler {
	if store == nil {
		panic("handlers: appointments store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{store: store, logger: logger}
}

// ListByLead returns a lead's appointments.
// GET /admin/leads/{leadID}/appointments
func (h *AppointmentsHandler) ListByLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	appts, err := h.store.ListByLead(r.Context(), leadID)
	if err != nil {
		h.logger.Error("appointment list failed", "lead_id", leadID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appts,
		"total":        len(appts),
	})
}

type updateAppointmentRequest struct {
	Status appointments.Status `json:"status"`
}

// UpdateStatus transitions an appointment.
// PATCH /admin/appointments/{appointmentID}
func (h *AppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	err := h.store.UpdateStatus(r.Context(), appointmentID, req.Status)
	if errors.Is(err, appointments.ErrNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("appointment update failed", "appointment_id", appointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("appointment status updated", "appointment_id", appointmentID, "status", req.Status)
	w.WriteHeader(http.StatusNoContent)
}
