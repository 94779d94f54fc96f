package bootstrap

import (
	"fmt"
	"strings"

	appconfig "github.com/rayfield/solar-ai-platform/internal/config"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/messaging"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// BuildMessenger creates the outbound SMS sender. Twilio credentials are
// required; the engine cannot run without a reply channel.
func BuildMessenger(cfg *appconfig.Config, logger *logging.Logger) (conversation.Messenger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if strings.TrimSpace(cfg.TwilioAccountSID) == "" ||
		strings.TrimSpace(cfg.TwilioAuthToken) == "" ||
		strings.TrimSpace(cfg.TwilioFromNumber) == "" {
		return nil, fmt.Errorf("bootstrap: twilio credentials are required, set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER")
	}
	return messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger), nil
}

// BuildVoiceCaller creates the hot-lead voice client. Returns nil when the
// voice callback URL is not configured; the dispatcher then skips calls.
func BuildVoiceCaller(cfg *appconfig.Config, logger *logging.Logger) conversation.VoiceCaller {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.VoiceCallbackURL) == "" {
		logger.Warn("voice callback url not configured; hot-lead calls disabled")
		return nil
	}
	if strings.TrimSpace(cfg.TwilioAccountSID) == "" || strings.TrimSpace(cfg.TwilioAuthToken) == "" {
		logger.Warn("twilio credentials missing; hot-lead calls disabled")
		return nil
	}
	return messaging.NewTwilioVoiceClient(
		cfg.TwilioAccountSID,
		cfg.TwilioAuthToken,
		cfg.TwilioFromNumber,
		cfg.VoiceCallbackURL,
		logger,
	)
}
