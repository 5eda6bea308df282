package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"LLM_PROVIDER", "LLM_MODEL", "HUGGINGFACE_API_TOKEN", "OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	"LLM_BASE_URL", "LLM_TIMEOUT", "LLM_MAX_TOKENS", "LLM_TEMPERATURE",
	"TODOIST_API_TOKEN", "GOOGLE_SERVICE_ACCOUNT_INFO", "GOOGLE_CALENDAR_ID", "PLAN_TIMEZONE",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_MODE", "DISCORD_BOT_TOKEN", "DISCORD_WEBHOOK_URL", "HTTP_ADDR",
	"SESSION_STORE", "DATABASE_PATH", "PLAN_CRON", "PLAN_PUSH_USER", "PLAN_PUSH_CONVERSATION",
	"LOG_LEVEL",
}

// clearEnv blanks every key; envOr treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "huggingface", cfg.LLMProvider)
	assert.Equal(t, 40*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 700, cfg.LLMMaxTokens)
	assert.InDelta(t, 0.4, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "poll", cfg.TelegramMode)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, "./dayplan.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.GoogleCalendarIDs)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_TIMEOUT", "15")
	t.Setenv("LLM_MAX_TOKENS", "512")
	t.Setenv("LLM_TEMPERATURE", "0.9")
	t.Setenv("GOOGLE_CALENDAR_ID", " primary , work@group.calendar.google.com,, ")
	t.Setenv("SESSION_STORE", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 512, cfg.LLMMaxTokens)
	assert.InDelta(t, 0.9, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, []string{"primary", "work@group.calendar.google.com"}, cfg.GoogleCalendarIDs)
	assert.Equal(t, "sqlite", cfg.SessionStore)
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"LLM_TIMEOUT", "soon"},
		{"LLM_MAX_TOKENS", "many"},
		{"LLM_TEMPERATURE", "warm"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func validConfig() *Config {
	return &Config{
		LLMProvider:    "huggingface",
		HuggingFaceKey: "hf_x",
		LLMTimeout:     40 * time.Second,
		LLMMaxTokens:   700,
		LLMTemperature: 0.4,
		Timezone:       "UTC",
		TelegramMode:   "poll",
		HTTPAddr:       ":8080",
		SessionStore:   "memory",
		LogLevel:       "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "ollama needs no key", mutate: func(c *Config) {
			c.LLMProvider = "ollama"
			c.HuggingFaceKey = ""
		}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "palm" }, wantErr: "LLM_PROVIDER"},
		{name: "missing hf token", mutate: func(c *Config) { c.HuggingFaceKey = "" }, wantErr: "HUGGINGFACE_API_TOKEN"},
		{name: "router shares hf token", mutate: func(c *Config) {
			c.LLMProvider = "hf-router"
			c.HuggingFaceKey = ""
		}, wantErr: "HUGGINGFACE_API_TOKEN"},
		{name: "missing openai key", mutate: func(c *Config) { c.LLMProvider = "openai" }, wantErr: "OPENAI_API_KEY"},
		{name: "missing anthropic key", mutate: func(c *Config) { c.LLMProvider = "anthropic" }, wantErr: "ANTHROPIC_API_KEY"},
		{name: "zero max tokens", mutate: func(c *Config) { c.LLMMaxTokens = 0 }, wantErr: "LLM_MAX_TOKENS"},
		{name: "temperature too high", mutate: func(c *Config) { c.LLMTemperature = 3 }, wantErr: "LLM_TEMPERATURE"},
		{name: "bad telegram mode", mutate: func(c *Config) { c.TelegramMode = "push" }, wantErr: "TELEGRAM_MODE"},
		{name: "bad session store", mutate: func(c *Config) { c.SessionStore = "redis" }, wantErr: "SESSION_STORE"},
		{name: "sqlite needs a path", mutate: func(c *Config) {
			c.SessionStore = "sqlite"
			c.DatabasePath = ""
		}, wantErr: "DATABASE_PATH"},
		{name: "cron needs a user", mutate: func(c *Config) { c.PlanCron = "0 7 * * *" }, wantErr: "PLAN_PUSH_USER"},
		{name: "unknown timezone", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, wantErr: "PLAN_TIMEZONE"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "bad webhook url", mutate: func(c *Config) { c.DiscordWebhook = "not a url" }, wantErr: "DISCORD_WEBHOOK_URL"},
		{name: "credentials without calendars", mutate: func(c *Config) { c.GoogleCredentials = "{}" }, wantErr: "GOOGLE_CALENDAR_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Europe/Helsinki"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Helsinki", loc.String())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{" DEBUG ", slog.LevelDebug, false},
		{"trace", LevelTrace, false},
		{"warning", slog.LevelWarn, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestNewLogger_RendersTrace(t *testing.T) {
	var b strings.Builder
	logger := NewLogger(&b, LevelTrace)
	logger.Log(t.Context(), LevelTrace, "wire payload")
	assert.Contains(t, b.String(), "level=TRACE")
	assert.Contains(t, b.String(), "wire payload")
}
