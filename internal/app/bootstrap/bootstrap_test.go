package bootstrap

import (
	"context"
	"testing"

	appconfig "github.com/rayfield/solar-ai-platform/internal/config"
	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

func TestBuildStoresMemoryFallback(t *testing.T) {
	cfg := &appconfig.Config{}

	stores, err := BuildStores(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stores.Close()

	if stores.Leads == nil || stores.Messages == nil || stores.Appointments == nil {
		t.Fatalf("expected in-memory stores to be wired")
	}
	if stores.DB != nil {
		t.Fatalf("expected nil DB without DATABASE_URL")
	}
}

func TestBuildStoresRequiresConfig(t *testing.T) {
	if _, err := BuildStores(context.Background(), nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildLLMClientNoProviders(t *testing.T) {
	cfg := &appconfig.Config{}

	if _, err := BuildLLMClient(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error when no provider is configured")
	}
}

func TestBuildLLMClientOpenAIOnly(t *testing.T) {
	cfg := &appconfig.Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o"}

	client, err := BuildLLMClient(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*conversation.OpenAIClient); !ok {
		t.Fatalf("expected a plain openai client, got %T", client)
	}
}

func TestBuildMessengerRequiresTwilio(t *testing.T) {
	cfg := &appconfig.Config{TwilioAccountSID: "AC123"}

	if _, err := BuildMessenger(cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error for incomplete twilio credentials")
	}
}

func TestBuildVoiceCallerDisabledWithoutCallback(t *testing.T) {
	cfg := &appconfig.Config{TwilioAccountSID: "AC123", TwilioAuthToken: "token"}

	if caller := BuildVoiceCaller(cfg, logging.New("error")); caller != nil {
		t.Fatalf("expected nil voice caller without callback url")
	}
}

func TestBuildLeadLockerFallsBackToMemory(t *testing.T) {
	locker := BuildLeadLocker(nil, logging.New("error"))
	if _, ok := locker.(*conversation.MemoryLeadLocker); !ok {
		t.Fatalf("expected memory lead locker, got %T", locker)
	}
}
