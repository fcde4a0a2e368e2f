package llms

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	errs "github.com/XiaoConstantine/spark-go/pkg/errors"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
)

// AnthropicLLM implements the core.LLM interface for Anthropic's models.
type AnthropicLLM struct {
	client *anthropic.Client
	logger *logging.Logger
	*core.BaseLLM
}

// NewAnthropicLLM creates a new AnthropicLLM instance.
func NewAnthropicLLM(apiKey, model string, logger *logging.Logger) (*AnthropicLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errs.New(errs.InvalidInput, "Anthropic API key is required")
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicLLM{
		client:  &client,
		logger:  logger,
		BaseLLM: core.NewBaseLLM("anthropic", model, nil),
	}, nil
}

// AnthropicFactory creates AnthropicLLM instances from provider config.
func AnthropicFactory(logger *logging.Logger) Factory {
	return func(ctx context.Context, cfg core.ProviderConfig) (core.LLM, error) {
		return NewAnthropicLLM(cfg.APIKey, cfg.Model, logger)
	}
}

// Generate implements the core.LLM interface.
func (a *AnthropicLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	opts := core.NewGenerateOptions()
	for _, opt := range options {
		opt(opts)
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(a.ModelID()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: anthropic.Float(opts.Temperature),
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.SystemPrompt},
		}
	}
	if len(opts.Stop) > 0 {
		params.StopSequences = opts.Stop
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		code := errs.BackendNetworkError
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			a.logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
			code = classifyStatus(apiErr.StatusCode)
		}
		return nil, errs.WithFields(
			errs.Wrap(err, code, "failed to generate response"),
			errs.Fields{
				"provider":   "anthropic",
				"model":      a.ModelID(),
				"max_tokens": opts.MaxTokens,
			})
	}

	if message == nil || len(message.Content) == 0 {
		return nil, errs.New(errs.BackendServerError, "received empty content from Anthropic API")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}

	usage := &core.TokenInfo{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}

	a.logger.Debug(ctx, "Anthropic response: %d prompt tokens, %d completion tokens",
		message.Usage.InputTokens, message.Usage.OutputTokens)

	return &core.LLMResponse{Content: responseText, Usage: usage}, nil
}
