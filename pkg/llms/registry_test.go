package llms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

type stubLLM struct {
	*core.BaseLLM
	reply string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	return &core.LLMResponse{Content: s.reply}, nil
}

func stubFactory(fail bool) Factory {
	return func(ctx context.Context, cfg core.ProviderConfig) (core.LLM, error) {
		if fail {
			return nil, errors.New(errors.BackendNetworkError, "stub build failed")
		}
		return &stubLLM{
			BaseLLM: core.NewBaseLLM("stub", cfg.Model, nil),
			reply:   "OK",
		}, nil
	}
}

func TestNewRegistryHasBuiltinFactories(t *testing.T) {
	r := NewRegistry(nil)

	for _, typ := range []string{"anthropic", "ollama", "openai"} {
		_, ok := r.factories[typ]
		assert.True(t, ok, "factory %q should be registered", typ)
	}
}

func TestRegisterFactoryValidation(t *testing.T) {
	r := NewRegistry(nil)

	err := r.RegisterFactory("", stubFactory(false))
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))

	err = r.RegisterFactory("stub", nil)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))

	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))
}

func TestForProviderCachesInstance(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))
	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "stub", Model: "m1"},
	})

	first, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)
	second, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestForProviderUnknownName(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.ForProvider(context.Background(), "nope")
	assert.Equal(t, errors.ResourceNotFound, errors.CodeOf(err))
}

func TestForProviderFallback(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("broken", stubFactory(true)))
	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))
	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "broken", Model: "m1", FallbackProvider: "backup"},
		"backup":  {Type: "stub", Model: "m2"},
	})

	llm, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)
	assert.Equal(t, "stub", llm.ProviderName())
	assert.Equal(t, "m2", llm.ModelID())
}

func TestForProviderFallbackFailureSurfacesPrimaryError(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("broken", stubFactory(true)))
	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "broken", FallbackProvider: "backup"},
		"backup":  {Type: "broken"},
	})

	_, err := r.ForProvider(context.Background(), "primary")
	require.Error(t, err)
	assert.Equal(t, errors.BackendNetworkError, errors.CodeOf(err))

	var structured *errors.Error
	require.ErrorAs(t, err, &structured)
	assert.Contains(t, structured.Fields(), "fallback_error")
}

func TestBuildUnsupportedType(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Build(context.Background(), core.ProviderConfig{Name: "x", Type: "nope"})
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestBuildDoesNotCache(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))

	first, err := r.Build(context.Background(), core.ProviderConfig{Name: "x", Type: "stub"})
	require.NoError(t, err)
	second, err := r.Build(context.Background(), core.ProviderConfig{Name: "x", Type: "stub"})
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestLoadConfigsDropsInstances(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))
	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "stub", Model: "m1"},
	})

	first, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)

	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "stub", Model: "m1"},
	})

	second, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestLoadConfigsDefaultsName(t *testing.T) {
	r := NewRegistry(nil)
	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "stub"},
	})

	cfg, ok := r.Config("primary")
	require.True(t, ok)
	assert.Equal(t, "primary", cfg.Name)
}

func TestSetAPIKeyInvalidatesInstance(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))
	r.LoadConfigs(map[string]core.ProviderConfig{
		"primary": {Type: "stub", Model: "m1"},
	})

	first, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)

	r.SetAPIKey("primary", "secret")

	cfg, ok := r.Config("primary")
	require.True(t, ok)
	assert.Equal(t, "secret", cfg.APIKey)

	second, err := r.ForProvider(context.Background(), "primary")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestInvalidateAndReset(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterFactory("stub", stubFactory(false)))
	r.LoadConfigs(map[string]core.ProviderConfig{
		"a": {Type: "stub"},
		"b": {Type: "stub"},
	})

	firstA, err := r.ForProvider(context.Background(), "a")
	require.NoError(t, err)
	firstB, err := r.ForProvider(context.Background(), "b")
	require.NoError(t, err)

	r.Invalidate("a")
	secondA, err := r.ForProvider(context.Background(), "a")
	require.NoError(t, err)
	sameB, err := r.ForProvider(context.Background(), "b")
	require.NoError(t, err)
	assert.NotSame(t, firstA, secondA)
	assert.Same(t, firstB, sameB)

	r.Reset()
	thirdB, err := r.ForProvider(context.Background(), "b")
	require.NoError(t, err)
	assert.NotSame(t, firstB, thirdB)
}

func TestProviders(t *testing.T) {
	r := NewRegistry(nil)
	r.LoadConfigs(map[string]core.ProviderConfig{
		"a": {Type: "stub"},
		"b": {Type: "stub"},
	})

	assert.ElementsMatch(t, []string{"a", "b"}, r.Providers())
}
