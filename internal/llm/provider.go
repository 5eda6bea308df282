package llm

import (
	"fmt"
	"time"
)

const (
	DefaultTimeout   = 40 * time.Second
	DefaultMaxTokens = 700

	huggingFaceRouterURL = "https://router.huggingface.co/v1"
	ollamaURL            = "http://localhost:11434/v1"
)

// Options tune a single generation call.
type Options struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Options  Options
}

// NewGenerator builds the Generator for the configured provider.
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case "huggingface":
		return NewHuggingFaceClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Options), nil
	case "hf-router":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = huggingFaceRouterURL
		}
		if cfg.Model == "" {
			cfg.Model = defaultHuggingFaceModel
		}
		return NewOpenAIClient("hf-router", cfg.APIKey, cfg.Model, baseURL, cfg.Options), nil
	case "openai":
		return NewOpenAIClient("openai", cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Options), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = ollamaURL
		}
		if cfg.Model == "" {
			cfg.Model = "llama3.1"
		}
		return NewOpenAIClient("ollama", "ollama", cfg.Model, baseURL, cfg.Options), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Options), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
