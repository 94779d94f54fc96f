package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.QueueConcurrency)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, 200, cfg.AIMaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.AICallTimeout)
	assert.Nil(t, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.example.com, https://admin.example.com,")

	cfg := Load()

	assert.Equal(t, []string{"https://ops.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("QUEUE_CONCURRENCY", "3")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("AI_TEMPERATURE", "0.2")
	t.Setenv("REMINDER_AFTER", "6h")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.QueueConcurrency)
	assert.True(t, cfg.UseMemoryQueue)
	assert.InDelta(t, 0.2, cfg.AITemperature, 0.001)
	assert.Equal(t, 6*time.Hour, cfg.ReminderAfter)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("QUEUE_CONCURRENCY", "not-a-number")
	t.Setenv("REMINDER_AFTER", "soon")

	cfg := Load()

	assert.Equal(t, 5, cfg.QueueConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.ReminderAfter)
}
