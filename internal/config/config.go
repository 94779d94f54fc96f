package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL string

	// Queue settings. When UseMemoryQueue is set the API process runs an
	// in-process worker instead of publishing to SQS.
	UseMemoryQueue         bool
	QueueConcurrency       int
	InitialContactQueueURL string
	AIProcessQueueURL      string
	RemindersQueueURL      string
	QualificationJobsTable string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	OpenAIAPIKey      string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string
	AITemperature     float64
	AIMaxOutputTokens int
	AICallTimeout     time.Duration

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	TwilioWebhookURL   string
	VoiceCallbackURL   string
	OptOutConfirmation string

	AdminJWTSecret string

	OpsEmail      string
	FromEmail     string
	FromEmailName string

	ReminderAfter time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		UseMemoryQueue:         getEnvAsBool("USE_MEMORY_QUEUE", false),
		QueueConcurrency:       getEnvAsInt("QUEUE_CONCURRENCY", 5),
		InitialContactQueueURL: getEnv("INITIAL_CONTACT_QUEUE_URL", ""),
		AIProcessQueueURL:      getEnv("AI_PROCESS_QUEUE_URL", ""),
		RemindersQueueURL:      getEnv("REMINDERS_QUEUE_URL", ""),
		QualificationJobsTable: getEnv("QUALIFICATION_JOBS_TABLE", "qualification_jobs"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITemperature:     getEnvAsFloat("AI_TEMPERATURE", 0.7),
		AIMaxOutputTokens: getEnvAsInt("AI_MAX_OUTPUT_TOKENS", 200),
		AICallTimeout:     getEnvAsDuration("AI_CALL_TIMEOUT", 30*time.Second),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioWebhookURL: getEnv("TWILIO_WEBHOOK_URL", ""),
		VoiceCallbackURL: getEnv("VOICE_CALLBACK_URL", ""),
		OptOutConfirmation: getEnv("OPT_OUT_CONFIRMATION",
			"You have been unsubscribed and will receive no further messages. Reply START to opt back in."),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		OpsEmail:      getEnv("OPS_EMAIL", ""),
		FromEmail:     getEnv("FROM_EMAIL", ""),
		FromEmailName: getEnv("FROM_EMAIL_NAME", "SOLAI"),

		ReminderAfter: getEnvAsDuration("REMINDER_AFTER", 24*time.Hour),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
	}
}

// IsProduction reports whether the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
