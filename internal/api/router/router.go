// Package router assembles the HTTP surface: public webhook and health
// endpoints plus the JWT-protected admin API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rayfield/solar-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/rayfield/solar-ai-platform/internal/http/middleware"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	LeadsHandler        *handlers.LeadsHandler
	TwilioWebhook       *handlers.TwilioWebhookHandler
	JobsHandler         *handlers.JobsHandler
	AppointmentsHandler *handlers.AppointmentsHandler
	HealthHandler       *handlers.HealthHandler

	// AdminJWTSecret protects the admin API. Empty leaves admin routes
	// unauthenticated (local development only).
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/healthz", cfg.HealthHandler.Live)
			public.Get("/readyz", cfg.HealthHandler.Ready)
		}
		if cfg.TwilioWebhook != nil {
			public.With(httpmiddleware.WebhookRateLimit()).
				Post("/webhooks/twilio/sms", cfg.TwilioWebhook.HandleSMS)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// Intake is public so ad platform integrations can post leads
		// directly.
		if cfg.LeadsHandler != nil {
			public.Post("/api/leads", cfg.LeadsHandler.CreateLead)
		}
	})

	// Admin API.
	r.Group(func(admin chi.Router) {
		if cfg.AdminJWTSecret != "" {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
		}
		if cfg.LeadsHandler != nil {
			admin.Get("/api/leads", cfg.LeadsHandler.ListLeads)
			admin.Get("/api/leads/{leadID}", cfg.LeadsHandler.GetLead)
			admin.Patch("/api/leads/{leadID}", cfg.LeadsHandler.UpdateLead)
		}
		if cfg.AppointmentsHandler != nil {
			admin.Get("/api/leads/{leadID}/appointments", cfg.AppointmentsHandler.ListByLead)
			admin.Patch("/api/appointments/{appointmentID}", cfg.AppointmentsHandler.UpdateStatus)
		}
		if cfg.JobsHandler != nil {
			admin.Get("/api/jobs/{jobID}", cfg.JobsHandler.GetJob)
		}
	})

	return r
}
