package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider    string        `env:"LLM_PROVIDER" validate:"oneof=huggingface hf-router openai ollama anthropic"`
	LLMModel       string        `env:"LLM_MODEL"`
	HuggingFaceKey string        `env:"HUGGINGFACE_API_TOKEN"`
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	AnthropicKey   string        `env:"ANTHROPIC_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL" validate:"omitempty,url"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" validate:"gt=0"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" validate:"gt=0"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE" validate:"gte=0,lte=2"`

	TodoistToken      string   `env:"TODOIST_API_TOKEN"`
	GoogleCredentials string   `env:"GOOGLE_SERVICE_ACCOUNT_INFO"`
	GoogleCalendarIDs []string `env:"GOOGLE_CALENDAR_ID"`
	Timezone          string   `env:"PLAN_TIMEZONE" validate:"required"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramMode   string `env:"TELEGRAM_MODE" validate:"oneof=poll webhook"`
	DiscordToken   string `env:"DISCORD_BOT_TOKEN"`
	DiscordWebhook string `env:"DISCORD_WEBHOOK_URL" validate:"omitempty,url"`
	HTTPAddr       string `env:"HTTP_ADDR" validate:"required"`

	SessionStore string `env:"SESSION_STORE" validate:"oneof=memory sqlite"`
	DatabasePath string `env:"DATABASE_PATH" validate:"required_if=SessionStore sqlite"`

	PlanCron             string `env:"PLAN_CRON"`
	PlanPushUser         string `env:"PLAN_PUSH_USER" validate:"required_with=PlanCron"`
	PlanPushConversation string `env:"PLAN_PUSH_CONVERSATION"`

	LogLevel string `env:"LOG_LEVEL"`
}

// Load reads the environment, after loading a .env file if one exists.
// It fails only on values that cannot be parsed; call Validate for the
// rest.
func Load() (*Config, error) {
	_ = godotenv.Load() // ignore error if no .env

	timeout, err := envDuration("LLM_TIMEOUT", 40*time.Second)
	if err != nil {
		return nil, err
	}
	maxTokens, err := envInt("LLM_MAX_TOKENS", 700)
	if err != nil {
		return nil, err
	}
	temperature, err := envFloat("LLM_TEMPERATURE", 0.4)
	if err != nil {
		return nil, err
	}

	return &Config{
		LLMProvider:    strings.ToLower(envOr("LLM_PROVIDER", "huggingface")),
		LLMModel:       os.Getenv("LLM_MODEL"),
		HuggingFaceKey: os.Getenv("HUGGINGFACE_API_TOKEN"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		LLMBaseURL:     os.Getenv("LLM_BASE_URL"),
		LLMTimeout:     timeout,
		LLMMaxTokens:   maxTokens,
		LLMTemperature: temperature,

		TodoistToken:      os.Getenv("TODOIST_API_TOKEN"),
		GoogleCredentials: os.Getenv("GOOGLE_SERVICE_ACCOUNT_INFO"),
		GoogleCalendarIDs: splitList(os.Getenv("GOOGLE_CALENDAR_ID")),
		Timezone:          envOr("PLAN_TIMEZONE", "UTC"),

		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramMode:   strings.ToLower(envOr("TELEGRAM_MODE", "poll")),
		DiscordToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook: os.Getenv("DISCORD_WEBHOOK_URL"),
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),

		SessionStore: strings.ToLower(envOr("SESSION_STORE", "memory")),
		DatabasePath: envOr("DATABASE_PATH", "./dayplan.db"),

		PlanCron:             os.Getenv("PLAN_CRON"),
		PlanPushUser:         os.Getenv("PLAN_PUSH_USER"),
		PlanPushConversation: os.Getenv("PLAN_PUSH_CONVERSATION"),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}, nil
}

// Validate checks field constraints and cross-field requirements.
// Messages name the environment variable at fault.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})

	var errs []error
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed %q check (value %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value())))
		}
	}
	if key := c.LLMKeyEnv(); key != "" && c.LLMAPIKey() == "" {
		errs = append(errs, fmt.Errorf("%s is required for LLM_PROVIDER=%s", key, c.LLMProvider))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.GoogleCredentials != "" && len(c.GoogleCalendarIDs) == 0 {
		errs = append(errs, errors.New("GOOGLE_CALENDAR_ID is required when GOOGLE_SERVICE_ACCOUNT_INFO is set"))
	}
	return errors.Join(errs...)
}

// LLMKeyEnv names the credential variable the provider needs, or "" when
// it needs none.
func (c *Config) LLMKeyEnv() string {
	switch c.LLMProvider {
	case "huggingface", "hf-router":
		return "HUGGINGFACE_API_TOKEN"
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// LLMAPIKey returns the credential for the configured provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMKeyEnv() {
	case "HUGGINGFACE_API_TOKEN":
		return c.HuggingFaceKey
	case "OPENAI_API_KEY":
		return c.OpenAIKey
	case "ANTHROPIC_API_KEY":
		return c.AnthropicKey
	}
	return ""
}

// Location resolves PLAN_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("PLAN_TIMEZONE: %w", err)
	}
	return loc, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		if secs, nerr := strconv.ParseFloat(v, 64); nerr == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
