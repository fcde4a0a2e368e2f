package llms

import (
	"context"
	"sync"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
	"github.com/XiaoConstantine/spark-go/pkg/logging"
)

// Factory builds an LLM instance from a provider configuration.
type Factory func(ctx context.Context, cfg core.ProviderConfig) (core.LLM, error)

// Registry manages provider configurations and caches built instances
// by provider name. Instances live until explicit invalidation or a
// wholesale config reload; entries are never partially mutated.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory             // keyed by provider type
	configs   map[string]core.ProviderConfig // keyed by provider name
	instances map[string]core.LLM            // keyed by provider name
	logger    *logging.Logger
}

// NewRegistry creates a registry with the built-in provider factories
// registered.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	r := &Registry{
		factories: make(map[string]Factory),
		configs:   make(map[string]core.ProviderConfig),
		instances: make(map[string]core.LLM),
		logger:    logger,
	}
	r.factories["anthropic"] = AnthropicFactory(logger)
	r.factories["ollama"] = OllamaFactory()
	r.factories["openai"] = OpenAIFactory()
	return r
}

// RegisterFactory registers a factory for a provider type.
func (r *Registry) RegisterFactory(providerType string, factory Factory) error {
	if providerType == "" {
		return errors.New(errors.InvalidInput, "provider type cannot be empty")
	}
	if factory == nil {
		return errors.New(errors.InvalidInput, "provider factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[providerType] = factory
	return nil
}

// LoadConfigs swaps in a fresh set of named provider configurations and
// drops every cached instance. In-flight executions keep the instances
// they already resolved.
func (r *Registry) LoadConfigs(configs map[string]core.ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs = make(map[string]core.ProviderConfig, len(configs))
	for name, cfg := range configs {
		if cfg.Name == "" {
			cfg.Name = name
		}
		r.configs[name] = cfg
	}
	r.instances = make(map[string]core.LLM)
}

// SetAPIKey injects a secret for a named provider. Secrets arrive as
// opaque strings from the external secrets collaborator.
func (r *Registry) SetAPIKey(name, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok := r.configs[name]; ok {
		cfg.APIKey = key
		r.configs[name] = cfg
		delete(r.instances, name)
	}
}

// ForProvider returns the cached instance for a provider name, building
// one if needed. When the primary cannot be built and the configuration
// names a fallback provider, the fallback is used instead. One level
// only, no chains.
func (r *Registry) ForProvider(ctx context.Context, name string) (core.LLM, error) {
	llm, err := r.forProvider(ctx, name)
	if err == nil {
		return llm, nil
	}

	r.mu.RLock()
	fallback := r.configs[name].FallbackProvider
	r.mu.RUnlock()

	if fallback == "" || fallback == name {
		return nil, err
	}

	r.logger.Warn(ctx, "provider %q unavailable, falling back to %q: %v", name, fallback, err)
	fbLLM, fbErr := r.forProvider(ctx, fallback)
	if fbErr != nil {
		// Surface the primary failure; the fallback attempt is a detail.
		return nil, errors.WithFields(err, errors.Fields{"fallback_error": fbErr.Error()})
	}
	return fbLLM, nil
}

func (r *Registry) forProvider(ctx context.Context, name string) (core.LLM, error) {
	r.mu.RLock()
	if llm, ok := r.instances[name]; ok {
		r.mu.RUnlock()
		return llm, nil
	}
	cfg, ok := r.configs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "unknown provider"),
			errors.Fields{"provider": name})
	}

	llm, err := r.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another run may have built it concurrently; keep the first.
	if cached, ok := r.instances[name]; ok {
		return cached, nil
	}
	r.instances[name] = llm
	return llm, nil
}

// Build constructs a fresh, uncached instance from a configuration.
// Per-agent overrides go through here so they never pollute the cache.
func (r *Registry) Build(ctx context.Context, cfg core.ProviderConfig) (core.LLM, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unsupported provider type"),
			errors.Fields{"provider": cfg.Name, "type": cfg.Type})
	}
	return factory(ctx, cfg)
}

// Config returns the stored configuration for a provider name.
func (r *Registry) Config(name string) (core.ProviderConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	return cfg, ok
}

// Invalidate drops the cached instance for one provider.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, name)
}

// Reset drops every cached instance.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]core.LLM)
}

// Providers lists the configured provider names.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	return names
}
