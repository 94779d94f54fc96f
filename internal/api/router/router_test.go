package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayfield/solar-ai-platform/internal/appointments"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/http/handlers"
	"github.com/rayfield/solar-ai-platform/internal/leads"
)

const testAdminSecret = "router-test-secret"

func newTestRouter(t *testing.T) (http.Handler, *leads.InMemoryRepository) {
	t.Helper()
	repo := leads.NewInMemoryRepository()
	jobs := conversation.NewMemoryJobStore()

	cfg := &Config{
		LeadsHandler:        handlers.NewLeadsHandler(repo, nil, nil),
		JobsHandler:         handlers.NewJobsHandler(jobs, nil),
		AppointmentsHandler: handlers.NewAppointmentsHandler(appointments.NewMemoryStore(), nil),
		HealthHandler:       handlers.NewHealthHandler(nil),
		AdminJWTSecret:      testAdminSecret,
	}
	return New(cfg), repo
}

func adminToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return token
}

func TestRouterPublicEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"Dana Reed","phone":"+15552810100","address":"12 Oak St","source":"facebook"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code, "lead intake must not require admin auth")
}

func TestRouterAdminRequiresJWT(t *testing.T) {
	r, repo := newTestRouter(t)

	lead, err := repo.Create(context.Background(), &leads.CreateLeadRequest{
		Name: "Dana Reed", Phone: "+15552810100", Address: "12 Oak St", Source: "facebook",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads/"+lead.ID, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/leads/"+lead.ID, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAdminListAndJobs(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
