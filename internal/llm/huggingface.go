package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	huggingFaceAPI          = "https://api-inference.huggingface.co/models/"
	defaultHuggingFaceModel = "mistralai/Mistral-7B-Instruct-v0.2"
)

// HuggingFaceClient calls the Hugging Face text-generation inference
// endpoint for a single model.
type HuggingFaceClient struct {
	token   string
	model   string
	baseURL string
	opts    Options
	http    *http.Client
}

func NewHuggingFaceClient(token, model, baseURL string, opts Options) *HuggingFaceClient {
	if model == "" {
		model = defaultHuggingFaceModel
	}
	if baseURL == "" {
		baseURL = huggingFaceAPI
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	opts = opts.withDefaults()
	return &HuggingFaceClient{
		token:   token,
		model:   model,
		baseURL: baseURL,
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

// Raw API request/response types

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText *string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: c.opts.MaxTokens,
			Temperature:  c.opts.Temperature,
		},
	})
	if err != nil {
		return "", transportError("huggingface", c.model, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.model, bytes.NewReader(body))
	if err != nil {
		return "", transportError("huggingface", c.model, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dayplan/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError("huggingface", c.model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError("huggingface", c.model, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := string(respBody)
		var apiErr hfError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			detail = apiErr.Error
		}
		return "", rejectedError("huggingface", c.model, resp.StatusCode, detail, nil)
	}

	return finish("huggingface", c.model, parseHuggingFaceText(respBody))
}

// parseHuggingFaceText extracts generated_text from either a list of
// generations or a single generation object. Unknown shapes yield "".
func parseHuggingFaceText(body []byte) string {
	var list []hfGeneration
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) > 0 && list[0].GeneratedText != nil {
			return *list[0].GeneratedText
		}
		return ""
	}
	var single hfGeneration
	if err := json.Unmarshal(body, &single); err == nil && single.GeneratedText != nil {
		return *single.GeneratedText
	}
	return ""
}
