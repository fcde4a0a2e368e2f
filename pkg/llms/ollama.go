package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// OllamaLLM implements the core.LLM interface for Ollama-hosted models.
type OllamaLLM struct {
	*core.BaseLLM
}

// NewOllamaLLM creates a new OllamaLLM instance.
func NewOllamaLLM(endpoint, model string) (*OllamaLLM, error) {
	if model == "" {
		return nil, errors.New(errors.InvalidInput, "model name is required")
	}
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}

	endpointCfg := &core.EndpointConfig{
		BaseURL: endpoint,
		Path:    "api/generate",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		TimeoutSec: 10 * 60,
	}

	return &OllamaLLM{
		BaseLLM: core.NewBaseLLM("ollama", model, endpointCfg),
	}, nil
}

// OllamaFactory creates OllamaLLM instances from provider config.
func OllamaFactory() Factory {
	return func(ctx context.Context, cfg core.ProviderConfig) (core.LLM, error) {
		// Strip an "ollama:" prefix so model ids work in either form.
		model := strings.TrimPrefix(cfg.Model, "ollama:")
		endpoint := ""
		if cfg.Endpoint != nil {
			endpoint = cfg.Endpoint.BaseURL
		}
		return NewOllamaLLM(endpoint, model)
	}
}

type ollamaRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Stream      bool    `json:"stream"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	CreatedAt       string `json:"created_at"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate implements the core.LLM interface.
func (o *OllamaLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	reqBody := ollamaRequest{
		Model:       o.ModelID(),
		Prompt:      prompt,
		System:      opts.SystemPrompt,
		Stream:      false,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to marshal request body"),
			errors.Fields{"model": o.ModelID()})
	}

	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(o.GetEndpointConfig().BaseURL, "/"), o.GetEndpointConfig().Path)
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
			errors.Wrap(err, errors.BackendNetworkError, "failed to reach Ollama"),
			errors.Fields{"model": o.ModelID(), "endpoint": url})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.BackendNetworkError, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithFields(
			errors.New(classifyStatus(resp.StatusCode), "Ollama request failed"),
			errors.Fields{
				"model":       o.ModelID(),
				"status_code": resp.StatusCode,
				"response":    string(body),
			})
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, errors.Wrap(err, errors.BackendServerError, "failed to decode Ollama response")
	}

	usage := &core.TokenInfo{
		PromptTokens:     ollamaResp.PromptEvalCount,
		CompletionTokens: ollamaResp.EvalCount,
		TotalTokens:      ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
	}

	return &core.LLMResponse{Content: ollamaResp.Response, Usage: usage}, nil
}
