package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/leads"
	"github.com/rayfield/solar-ai-platform/internal/messaging"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// emptyTwiML tells Twilio not to send an automatic reply; all outbound SMS
// goes through the REST API instead.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// MessageScheduler enqueues an engine run for one inbound message.
type MessageScheduler interface {
	EnqueueProcessMessage(ctx context.Context, leadID, messageID string) (string, error)
}

// TwilioWebhookHandler receives inbound SMS callbacks.
type TwilioWebhookHandler struct {
	repo               leads.Repository
	messages           conversation.MessageStore
	scheduler          MessageScheduler
	messenger          conversation.Messenger
	authToken          string
	webhookURL         string
	optOutConfirmation string
	metrics            *metrics.EngineMetrics
	logger             *logging.Logger
}

// TwilioWebhookConfig wires the handler.
type TwilioWebhookConfig struct {
	// AuthToken enables signature validation; empty disables it (local
	// development only).
	AuthToken string
	// WebhookURL is the exact public URL Twilio signs against.
	WebhookURL string
	// OptOutConfirmation is sent once when a lead opts out.
	OptOutConfirmation string
}

// NewTwilioWebhookHandler creates the inbound SMS handler.
func NewTwilioWebhookHandler(
	repo leads.Repository,
	messages conversation.MessageStore,
	scheduler MessageScheduler,
	messenger conversation.Messenger,
	cfg TwilioWebhookConfig,
	m *metrics.EngineMetrics,
	logger *logging.Logger,
) *TwilioWebhookHandler {
	if repo == nil {
		panic("handlers: leads repository cannot be nil")
	}
	if messages == nil {
		panic("handlers: message store cannot be nil")
	}
	if scheduler == nil {
		panic("handlers: message scheduler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioWebhookHandler{
		repo:               repo,
		messages:           messages,
		scheduler:          scheduler,
		messenger:          messenger,
		authToken:          cfg.AuthToken,
		webhookURL:         cfg.WebhookURL,
		optOutConfirmation: cfg.OptOutConfirmation,
		metrics:            m,
		logger:             logger,
	}
}

// HandleSMS processes one inbound SMS. Twilio retries on non-2xx, so most
// failures still answer 200; only signature failures are rejected.
// POST /webhooks/twilio/sms
func (h *TwilioWebhookHandler) HandleSMS(w http.ResponseWriter, r *http.Request) {
	if h.authToken != "" && !messaging.ValidateTwilioSignature(r, h.authToken, h.webhookURL) {
		h.logger.Warn("twilio webhook signature rejected", "remote_ip", r.RemoteAddr)
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	webhook, err := messaging.ParseTwilioWebhook(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed webhook")
		return
	}
	if webhook.From == "" || webhook.Body == "" {
		h.respondEmpty(w)
		return
	}

	phone := messaging.NormalizeE164(webhook.From)
	lead, err := h.repo.GetByPhone(r.Context(), phone)
	if errors.Is(err, leads.ErrLeadNotFound) {
		h.logger.Info("sms from unknown number ignored", "from", phone)
		h.respondEmpty(w)
		return
	}
	if err != nil {
		h.logger.Error("lead lookup failed", "from", phone, "error", err)
		h.respondEmpty(w)
		return
	}

	if messaging.IsOptOut(webhook.Body) {
		h.handleOptOut(r.Context(), lead, webhook.Body)
		h.respondEmpty(w)
		return
	}

	msg, err := h.messages.Append(r.Context(), lead.ID, webhook.Body, conversation.DirectionInbound, conversation.ChannelSMS, false)
	if err != nil {
		h.logger.Error("failed to store inbound sms", "lead_id", lead.ID, "error", err)
		h.respondEmpty(w)
		return
	}
	if err := h.repo.RecordContact(r.Context(), lead.ID, false); err != nil {
		h.logger.Error("failed to record inbound contact", "lead_id", lead.ID, "error", err)
	}

	jobID, err := h.scheduler.EnqueueProcessMessage(r.Context(), lead.ID, msg.ID)
	if err != nil {
		h.logger.Error("failed to enqueue ai processing", "lead_id", lead.ID, "message_id", msg.ID, "error", err)
	} else {
		h.logger.Info("inbound sms queued", "lead_id", lead.ID, "message_id", msg.ID, "job_id", jobID)
	}

	h.respondEmpty(w)
}

// handleOptOut applies carrier opt-out compliance: the lead goes dead
// immediately and the engine is never invoked.
func (h *TwilioWebhookHandler) handleOptOut(ctx context.Context, lead *leads.Lead, body string) {
	h.logger.Info("lead opted out", "lead_id", lead.ID)
	h.metrics.ObserveOptOut()

	if _, err := h.messages.Append(ctx, lead.ID, body, conversation.DirectionInbound, conversation.ChannelSMS, true); err != nil {
		h.logger.Error("failed to store opt-out message", "lead_id", lead.ID, "error", err)
	}

	if err := h.repo.UpdateStatus(ctx, lead.ID, leads.StatusDead); err != nil {
		h.logger.Error("failed to mark opted-out lead dead", "lead_id", lead.ID, "error", err)
	}

	if h.messenger != nil && h.optOutConfirmation != "" {
		if _, err := h.messenger.Send(ctx, lead.Phone, h.optOutConfirmation); err != nil {
			h.logger.Error("failed to send opt-out confirmation", "lead_id", lead.ID, "error", err)
		}
	}
}

func (h *TwilioWebhookHandler) respondEmpty(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}
