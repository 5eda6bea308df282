package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to any chat-completion style endpoint: OpenAI itself,
// Ollama's OpenAI-compatible API, or the Hugging Face router.
type OpenAIClient struct {
	client  openai.Client
	backend string
	model   string
	opts    Options
}

func NewOpenAIClient(backend, apiKey, model, baseURL string, opts Options) *OpenAIClient {
	opts = opts.withDefaults()
	reqOpts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(opts.Timeout),
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAIClient{
		client:  openai.NewClient(reqOpts...),
		backend: backend,
		model:   model,
		opts:    opts,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxTokens:   openai.Int(int64(c.opts.MaxTokens)),
		Temperature: openai.Float(c.opts.Temperature),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", rejectedError(c.backend, c.model, apiErr.StatusCode, apiErr.Message, err)
		}
		return "", transportError(c.backend, c.model, err)
	}

	if len(resp.Choices) == 0 {
		return "", emptyError(c.backend, c.model)
	}
	return finish(c.backend, c.model, resp.Choices[0].Message.Content)
}
