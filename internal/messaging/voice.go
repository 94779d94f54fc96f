package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

var twilioVoiceTracer = otel.Tracer("solarai.internal.messaging.twilio_voice")

// TwilioVoiceClient places outbound calls through Twilio's REST API. The
// call fetches its TwiML from the configured callback URL.
type TwilioVoiceClient struct {
	accountSID  string
	authToken   string
	from        string
	callbackURL string
	baseURL     string
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewTwilioVoiceClient builds a voice client. callbackURL serves the TwiML
// script the call executes when answered.
func NewTwilioVoiceClient(accountSID, authToken, from, callbackURL string, logger *logging.Logger) *TwilioVoiceClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioVoiceClient{
		accountSID:  accountSID,
		authToken:   authToken,
		from:        from,
		callbackURL: callbackURL,
		baseURL:     "https://api.twilio.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

var _ conversation.VoiceCaller = (*TwilioVoiceClient)(nil)

// InitiateCall starts an outbound call and returns the call SID.
func (c *TwilioVoiceClient) InitiateCall(ctx context.Context, to string) (string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return "", errors.New("messaging: twilio credentials missing")
	}
	if to == "" {
		return "", errors.New("messaging: to required")
	}
	if c.from == "" || c.callbackURL == "" {
		return "", errors.New("messaging: voice from and callback URL required")
	}

	ctx, span := twilioVoiceTracer.Start(ctx, "messaging.twilio.call")
	defer span.End()
	span.SetAttributes(attribute.String("solarai.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", c.from)
	payload.Set("Url", c.callbackURL)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return "", fmt.Errorf("messaging: failed to build call request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("messaging: call request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("messaging: twilio call failed: %s", formatTwilioError(resp.StatusCode, body))
		span.RecordError(err)
		return "", err
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("messaging: failed to decode call response: %w", err)
	}

	c.logger.Info("twilio call initiated", "to", to, "sid", parsed.SID)
	return parsed.SID, nil
}
