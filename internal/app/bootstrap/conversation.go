package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/rayfield/solar-ai-platform/internal/config"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/internal/notify"
	"github.com/rayfield/solar-ai-platform/internal/observability/metrics"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// BuildLLMClient wires the completion provider chain: OpenAI primary with
// Gemini fallback. At least one API key must be configured.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var primary conversation.LLMClient
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		primary = conversation.NewOpenAIClient(
			openai.NewClient(cfg.OpenAIAPIKey),
			cfg.OpenAIModel,
			cfg.AICallTimeout,
			logger,
		)
	}

	var fallback conversation.LLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: build gemini client: %w", err)
		}
		fallback = gemini
	}

	switch {
	case primary != nil && fallback != nil:
		logger.Info("llm providers configured", "primary", cfg.OpenAIModel, "fallback", cfg.GeminiModel)
		return conversation.NewFallbackLLMClient(primary, fallback, logger), nil
	case primary != nil:
		logger.Info("llm provider configured", "primary", cfg.OpenAIModel)
		return primary, nil
	case fallback != nil:
		logger.Warn("openai not configured; gemini is the only provider", "model", cfg.GeminiModel)
		return fallback, nil
	default:
		return nil, fmt.Errorf("bootstrap: no LLM provider configured, set OPENAI_API_KEY or GEMINI_API_KEY")
	}
}

// BuildEngine assembles the full qualification engine: context manager,
// LLM chain, action dispatcher and outbound messenger.
func BuildEngine(
	ctx context.Context,
	cfg *appconfig.Config,
	stores *Stores,
	locker conversation.LeadLocker,
	notifier conversation.EscalationNotifier,
	m *metrics.EngineMetrics,
	logger *logging.Logger,
) (*conversation.Engine, error) {
	if cfg == nil || stores == nil {
		return nil, fmt.Errorf("bootstrap: config and stores are required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	llm, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	messenger, err := BuildMessenger(cfg, logger)
	if err != nil {
		return nil, err
	}
	voice := BuildVoiceCaller(cfg, logger)

	ctxmgr := conversation.NewContextManager(stores.Leads, stores.Messages, logger)
	dispatcher := conversation.NewDispatcher(stores.Leads, stores.Appointments, ctxmgr, voice, m, logger)

	opts := []conversation.EngineOption{
		conversation.WithSampling(float32(cfg.AITemperature), cfg.AIMaxOutputTokens),
		conversation.WithEngineMetrics(m),
	}
	if notifier != nil {
		opts = append(opts, conversation.WithEscalationNotifier(notifier))
	}
	return conversation.NewEngine(ctxmgr, llm, dispatcher, messenger, locker, logger, opts...), nil
}

// BuildEscalationNotifier wires the SES ops email path. Returns nil when the
// ops inbox or sender address is not configured.
func BuildEscalationNotifier(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) conversation.EscalationNotifier {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.OpsEmail) == "" || strings.TrimSpace(cfg.FromEmail) == "" {
		logger.Warn("escalation email not configured; escalations are log-only")
		return nil
	}

	sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromEmailName,
	}, logger)
	if sender == nil {
		return nil
	}

	var recipients []string
	for _, addr := range strings.Split(cfg.OpsEmail, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return notify.NewEscalationService(sender, recipients, logger)
}
