package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/spark-go/pkg/config"
	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
	"github.com/XiaoConstantine/spark-go/pkg/llms"
	"github.com/XiaoConstantine/spark-go/pkg/loader"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
)

const defaultSystemPrompt = `You are a document automation assistant working inside a markdown vault.
Answer the author's directive using the provided context documents.
Respond with markdown suitable for insertion into the document.`

// Inline chat responses replace their marker block verbatim, so the
// backend must produce directly substitutable content.
const chatSystemPrompt = `You are a document automation assistant replying inside a markdown document.
Produce only the content that should appear in the document.
Do not add meta-commentary, preambles, or explanations of what you did.`

// Executor orchestrates context assembly, backend dispatch, and result
// rewriting for commands and inline chats.
type Executor struct {
	loader   *loader.Loader
	registry *llms.Registry
	results  *ResultWriter
	errs     *ErrorWriter
	config   *config.Manager
	logger   *logging.Logger
}

func New(ld *loader.Loader, registry *llms.Registry, results *ResultWriter, errs *ErrorWriter, cfg *config.Manager, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Executor{
		loader:   ld,
		registry: registry,
		results:  results,
		errs:     errs,
		config:   cfg,
		logger:   logger,
	}
}

// Execute runs a command and rewrites the result into the document.
// The completed glyph is applied by the result write itself; failures
// mark the line errored, emit a structured report, and propagate.
func (e *Executor) Execute(ctx context.Context, cmd core.Command, path string) error {
	ctx = logging.WithDocument(ctx, path)
	e.results.UpdateStatus(ctx, path, cmd.Line, core.StatusProcessing)

	content, _, err := e.run(ctx, commandText(cmd), cmd.Mentions, path, defaultSystemPrompt)
	if err != nil {
		e.results.UpdateStatus(ctx, path, cmd.Line, core.StatusFailed)
		e.errs.Report(ctx, path, cmd.Line, err)
		return err
	}

	if err := e.results.WriteInline(ctx, path, cmd.Line, content); err != nil {
		// Writing the result is the primary observable contract;
		// surface this, unlike glyph updates.
		e.errs.Report(ctx, path, cmd.Line, err)
		return err
	}
	return nil
}

// ExecuteAndReturn runs the same core call but returns the raw text and
// makes no file mutation. Out-of-document callers such as the chat
// queue use this entry point.
func (e *Executor) ExecuteAndReturn(ctx context.Context, cmd core.Command, path string) (string, *core.TokenInfo, error) {
	ctx = logging.WithDocument(ctx, path)
	return e.run(ctx, commandText(cmd), cmd.Mentions, path, defaultSystemPrompt)
}

// ExecuteInlineChat runs a conversational turn and replaces the entire
// marker block with the plain response text. Removing the markers
// prevents re-detection.
func (e *Executor) ExecuteInlineChat(ctx context.Context, chat core.InlineChat, path string) error {
	ctx = logging.WithDocument(ctx, path)
	e.results.UpdateChatStatus(ctx, path, chat, core.ChatProcessing)
	chat.Status = core.ChatProcessing

	content, _, err := e.run(ctx, chat.UserMessage, chat.Mentions, path, chatSystemPrompt)
	if err != nil {
		e.results.UpdateChatStatus(ctx, path, chat, core.ChatError)
		e.errs.Report(ctx, path, chat.StartLine, err)
		return err
	}

	if err := e.results.WriteInlineChatResponse(ctx, path, chat, content); err != nil {
		e.errs.Report(ctx, path, chat.StartLine, err)
		return err
	}
	return nil
}

// run is the core call sequence shared by all entry points: load
// context, select backend, assemble options, invoke, return text plus
// usage. No retry happens here; error classification is surfaced as
// guidance only.
func (e *Executor) run(ctx context.Context, text string, mentions []core.Mention, path, systemPrompt string) (string, *core.TokenInfo, error) {
	if err := errors.CheckContext(ctx, "execution"); err != nil {
		return "", nil, err
	}

	cfg := e.config.Snapshot()
	lc := e.loader.Load(ctx, path, mentions)

	llm, providerCfg, err := e.selectBackend(ctx, cfg, lc)
	if err != nil {
		return "", nil, err
	}

	opts := e.generateOptions(providerCfg, lc, systemPrompt)
	prompt := buildPrompt(text, lc)

	resp, err := llm.Generate(ctx, prompt, opts...)
	if err != nil {
		return "", nil, err
	}

	e.logger.Completion(ctx, llm.ProviderName(), llm.ModelID(), toLogTokens(resp.Usage))
	return resp.Content, resp.Usage, nil
}

// selectBackend resolves the provider for this run. Per-agent overrides
// bypass the cache and build a fresh instance; otherwise the cached
// instance for the resolved provider name is used.
func (e *Executor) selectBackend(ctx context.Context, cfg *config.Config, lc *core.LoadedContext) (core.LLM, core.ProviderConfig, error) {
	name := cfg.AI.DefaultProvider
	base, ok := cfg.AI.Providers[name]
	if !ok {
		return nil, core.ProviderConfig{}, errors.WithFields(
			errors.New(errors.InvalidInput, "default provider is not configured"),
			errors.Fields{"provider": name})
	}

	if lc.Agent != nil && lc.Agent.AIConfig != nil {
		override := base
		ai := lc.Agent.AIConfig
		if ai.Provider != "" {
			if p, ok := cfg.AI.Providers[ai.Provider]; ok {
				override = p
			} else {
				override.Type = ai.Provider
				override.Name = ai.Provider
			}
		}
		if ai.Model != "" {
			override.Model = ai.Model
		}
		if ai.Temperature != nil {
			override.Temperature = ai.Temperature
		}

		llm, err := e.registry.Build(ctx, override)
		if err != nil {
			return nil, core.ProviderConfig{}, err
		}
		return llm, override, nil
	}

	llm, err := e.registry.ForProvider(ctx, name)
	if err != nil {
		return nil, core.ProviderConfig{}, err
	}
	return llm, base, nil
}

func (e *Executor) generateOptions(cfg core.ProviderConfig, lc *core.LoadedContext, systemPrompt string) []core.GenerateOption {
	if lc.Agent != nil && lc.Agent.Persona != "" {
		systemPrompt = systemPrompt + "\n\n" + lc.Agent.Persona
	}

	opts := []core.GenerateOption{core.WithSystemPrompt(systemPrompt)}
	if cfg.MaxTokens > 0 {
		opts = append(opts, core.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, core.WithTemperature(*cfg.Temperature))
	}
	return opts
}

// ContextFiles flattens a loaded context into provider-neutral tagged
// entries: high for explicit mentions, medium for the current file, low
// for nearby summaries.
func ContextFiles(lc *core.LoadedContext) []core.ContextFile {
	files := make([]core.ContextFile, 0, 1+len(lc.MentionedFiles)+len(lc.NearbyFiles))
	for _, mf := range lc.MentionedFiles {
		files = append(files, core.ContextFile{Path: mf.Path, Content: mf.Content, Priority: core.PriorityHigh})
	}
	files = append(files, core.ContextFile{
		Path:     lc.CurrentFile.Path,
		Content:  lc.CurrentFile.Content,
		Priority: core.PriorityMedium,
	})
	for _, nf := range lc.NearbyFiles {
		files = append(files, core.ContextFile{Path: nf.Path, Content: nf.Summary, Priority: core.PriorityLow})
	}
	return files
}

// buildPrompt renders the directive plus the tagged context bundle.
func buildPrompt(text string, lc *core.LoadedContext) string {
	var b strings.Builder

	for _, cf := range ContextFiles(lc) {
		if cf.Content == "" {
			continue
		}
		fmt.Fprintf(&b, "<context priority=%q path=%q>\n%s\n</context>\n\n", cf.Priority, cf.Path, cf.Content)
	}

	for _, sc := range lc.ServiceConnections {
		fmt.Fprintf(&b, "<service name=%q />\n", sc.Name)
	}

	fmt.Fprintf(&b, "<request>\n%s\n</request>", text)
	return b.String()
}

func commandText(cmd core.Command) string {
	cleaned, _ := core.StripStatusGlyph(cmd.Raw)
	return cleaned
}

func toLogTokens(usage *core.TokenInfo) *logging.TokenInfo {
	if usage == nil {
		return nil
	}
	return &logging.TokenInfo{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	}
}
