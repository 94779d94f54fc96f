package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/internal/messaging"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// ContactScheduler enqueues the initial outreach job for a new lead.
type ContactScheduler interface {
	EnqueueInitialContact(ctx context.Context, leadID string) (string, error)
}

// LeadsHandler serves the lead intake and admin endpoints.
type LeadsHandler struct {
	repo      leads.Repository
	scheduler ContactScheduler
	logger    *logging.Logger
}

// NewLeadsHandler creates the handler. scheduler may be nil; intake then
// records the lead without starting outreach.
func NewLeadsHandler(repo leads.Repository, scheduler ContactScheduler, logger *logging.Logger) *LeadsHandler {
	if repo == nil {
		panic("handlers: leads repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadsHandler{repo: repo, scheduler: scheduler, logger: logger}
}

type createLeadResponse struct {
	Lead      *leads.Lead `json:"lead"`
	JobID     string      `json:"job_id,omitempty"`
	Duplicate bool        `json:"duplicate,omitempty"`
}

// CreateLead handles lead intake.
// POST /api/leads
func (h *LeadsHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req leads.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Phone = messaging.NormalizeE164(req.Phone)
	if err := req.Validate(); err != nil {
		writeLeadError(w, err)
		return
	}

	email := ""
	if req.Email != nil {
		email = *req.Email
	}
	existing, err := h.repo.FindByPhoneOrEmail(r.Context(), req.Phone, email)
	if err != nil && !errors.Is(err, leads.ErrLeadNotFound) {
		writeLeadError(w, err)
		return
	}
	if existing != nil {
		h.logger.Info("duplicate lead intake", "lead_id", existing.ID, "phone", req.Phone)
		writeJSON(w, http.StatusOK, createLeadResponse{Lead: existing, Duplicate: true})
		return
	}

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	resp := createLeadResponse{Lead: lead}
	if h.scheduler != nil {
		jobID, err := h.scheduler.EnqueueInitialContact(r.Context(), lead.ID)
		if err != nil {
			// The lead is recorded; outreach can be retried from the
			// admin side.
			h.logger.Error("failed to enqueue initial contact", "lead_id", lead.ID, "error", err)
		} else {
			resp.JobID = jobID
		}
	}

	h.logger.Info("lead created", "lead_id", lead.ID, "source", lead.Source)
	writeJSON(w, http.StatusCreated, resp)
}

// GetLead returns one lead.
// GET /api/leads/{leadID}
func (h *LeadsHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil {
		writeLeadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// ListLeads returns leads matching the query filters.
// GET /api/leads?status=&source=&limit=
func (h *LeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := leads.ListFilter{
		Status: leads.Status(r.URL.Query().Get("status")),
		Source: r.URL.Query().Get("source"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	results, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeLeadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": results,
		"total": len(results),
	})
}

// UpdateLead applies an admin partial update.
// PATCH /api/leads/{leadID}
func (h *LeadsHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var req leads.UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeLeadError(w, err)
		return
	}

	lead, err := h.repo.Update(r.Context(), leadID, &req)
	if err != nil {
		writeLeadError(w, err)
		return
	}

	h.logger.Info("lead updated", "lead_id", leadID)
	writeJSON(w, http.StatusOK, lead)
}
