package core

import (
	"context"
	"net/http"
	"time"

	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

// TokenInfo reports token usage for one completion.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is the result of one backend completion call.
type LLMResponse struct {
	Content string
	Usage   *TokenInfo
}

// LLM represents a pluggable language-model backend. Implementations
// own their transport; Generate is the single long-latency suspension
// point in a pipeline run.
type LLM interface {
	// Generate produces a text completion for the given prompt.
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	ProviderName() string
	ModelID() string
}

// GenerateOption represents an option for text generation.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds configuration for text generation.
type GenerateOptions struct {
	MaxTokens    int
	Temperature  float64
	TopP         float64
	Stop         []string
	SystemPrompt string
}

// NewGenerateOptions creates a new GenerateOptions with default values.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   8192,
		Temperature: 0.5,
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithTopP sets the nucleus sampling probability.
func WithTopP(p float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.TopP = p
	}
}

// WithStopSequences sets the stop sequences.
func WithStopSequences(sequences ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Stop = sequences
	}
}

// WithSystemPrompt sets the system context for the completion.
func WithSystemPrompt(prompt string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompt = prompt
	}
}

// EndpointConfig describes where a provider's API lives.
type EndpointConfig struct {
	BaseURL    string            `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Path       string            `json:"path,omitempty" yaml:"path,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	TimeoutSec int               `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

// ProviderConfig configures one named backend provider.
type ProviderConfig struct {
	Name             string                 `json:"name" yaml:"name"`
	Type             string                 `json:"type" yaml:"type"`
	Model            string                 `json:"model" yaml:"model"`
	APIKey           string                 `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	MaxTokens        int                    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature      *float64               `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	FallbackProvider string                 `json:"fallback_provider,omitempty" yaml:"fallback_provider,omitempty"`
	Options          map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
	Endpoint         *EndpointConfig        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// BaseLLM provides a base implementation of the LLM interface.
type BaseLLM struct {
	providerName string
	modelID      string

	endpoint *EndpointConfig // Optional endpoint configuration
	client   *http.Client    // Common HTTP client
}

// ProviderName implements LLM interface.
func (b *BaseLLM) ProviderName() string {
	return b.providerName
}

// ModelID implements LLM interface.
func (b *BaseLLM) ModelID() string {
	return b.modelID
}

func NewBaseLLM(providerName, modelID string, endpoint *EndpointConfig) *BaseLLM {
	var timeout time.Duration
	if endpoint != nil && endpoint.TimeoutSec > 0 {
		timeout = time.Duration(endpoint.TimeoutSec) * time.Second
	} else {
		timeout = 60 * time.Second
	}

	return &BaseLLM{
		providerName: providerName,
		modelID:      modelID,
		endpoint:     endpoint,
		client:       &http.Client{Timeout: timeout},
	}
}

func ValidateEndpointConfig(cfg *EndpointConfig) error {
	if cfg == nil {
		return nil // Valid to have no endpoint config
	}

	if cfg.BaseURL == "" {
		return errors.New(errors.InvalidInput, "base URL required in endpoint configuration")
	}

	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60 // Default timeout
	}

	return nil
}

// GetEndpointConfig returns the current endpoint configuration.
func (b *BaseLLM) GetEndpointConfig() *EndpointConfig {
	return b.endpoint
}

// GetHTTPClient returns the HTTP client.
func (b *BaseLLM) GetHTTPClient() *http.Client {
	return b.client
}
