package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAILLM implements the core.LLM interface for OpenAI's models and
// any OpenAI-compatible chat-completions endpoint.
type OpenAILLM struct {
	*core.BaseLLM
	apiKey string
}

// NewOpenAILLM creates a new OpenAILLM instance.
func NewOpenAILLM(apiKey, model, baseURL string) (*OpenAILLM, error) {
	if model == "" {
		return nil, errors.New(errors.InvalidInput, "model name is required")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	// The official endpoint always requires a key; compatible local
	// servers often do not.
	if apiKey == "" && baseURL == defaultOpenAIBaseURL {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "OpenAI API key is required for api.openai.com"),
			errors.Fields{"env_var": "OPENAI_API_KEY"})
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}

	endpointCfg := &core.EndpointConfig{
		BaseURL:    baseURL,
		Path:       "/v1/chat/completions",
		Headers:    headers,
		TimeoutSec: 60,
	}

	return &OpenAILLM{
		BaseLLM: core.NewBaseLLM("openai", model, endpointCfg),
		apiKey:  apiKey,
	}, nil
}

// OpenAIFactory creates OpenAILLM instances from provider config.
func OpenAIFactory() Factory {
	return func(ctx context.Context, cfg core.ProviderConfig) (core.LLM, error) {
		baseURL := ""
		if cfg.Endpoint != nil {
			baseURL = cfg.Endpoint.BaseURL
		}
		return NewOpenAILLM(cfg.APIKey, cfg.Model, baseURL)
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

type openaiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate implements the core.LLM interface.
func (o *OpenAILLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	var messages []openaiMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: prompt})

	reqBody := openaiRequest{
		Model:       o.ModelID(),
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to marshal request body"),
			errors.Fields{"model": o.ModelID()})
	}

	url := strings.TrimSuffix(o.GetEndpointConfig().BaseURL, "/") + o.GetEndpointConfig().Path
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to create request"),
			errors.Fields{"model": o.ModelID()})
	}
	for k, v := range o.GetEndpointConfig().Headers {
		req.Header.Set(k, v)
	}

	resp, err := o.GetHTTPClient().Do(req)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.BackendNetworkError, "failed to reach OpenAI endpoint"),
			errors.Fields{"model": o.ModelID(), "endpoint": url})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.BackendNetworkError, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithFields(
			errors.New(classifyStatus(resp.StatusCode), "OpenAI request failed"),
			errors.Fields{
				"model":       o.ModelID(),
				"status_code": resp.StatusCode,
				"response":    string(body),
			})
	}

	var openaiResp openaiResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return nil, errors.Wrap(err, errors.BackendServerError, "failed to decode OpenAI response")
	}

	if len(openaiResp.Choices) == 0 {
		return nil, errors.New(errors.BackendServerError, "no choices returned from OpenAI API")
	}

	usage := &core.TokenInfo{
		PromptTokens:     openaiResp.Usage.PromptTokens,
		CompletionTokens: openaiResp.Usage.CompletionTokens,
		TotalTokens:      openaiResp.Usage.TotalTokens,
	}

	return &core.LLMResponse{Content: openaiResp.Choices[0].Message.Content, Usage: usage}, nil
}
