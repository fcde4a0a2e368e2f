package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

func TestNewOllamaLLM(t *testing.T) {
	t.Run("requires model", func(t *testing.T) {
		_, err := NewOllamaLLM("", "")
		assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
	})

	t.Run("defaults endpoint", func(t *testing.T) {
		llm, err := NewOllamaLLM("", "llama3")
		require.NoError(t, err)
		assert.Equal(t, defaultOllamaEndpoint, llm.GetEndpointConfig().BaseURL)
		assert.Equal(t, "ollama", llm.ProviderName())
		assert.Equal(t, "llama3", llm.ModelID())
	})
}

func TestOllamaFactoryStripsPrefix(t *testing.T) {
	llm, err := OllamaFactory()(context.Background(), core.ProviderConfig{
		Model: "ollama:llama3",
	})
	require.NoError(t, err)
	assert.Equal(t, "llama3", llm.ModelID())
}

func TestOllamaGenerate(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		resp := ollamaResponse{
			Model:           captured.Model,
			Response:        "generated text",
			PromptEvalCount: 12,
			EvalCount:       7,
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	llm, err := NewOllamaLLM(server.URL, "llama3")
	require.NoError(t, err)

	resp, err := llm.Generate(context.Background(), "say something",
		core.WithSystemPrompt("be brief"),
		core.WithMaxTokens(64),
		core.WithTemperature(0.1))
	require.NoError(t, err)

	assert.Equal(t, "generated text", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 7, resp.Usage.CompletionTokens)
	assert.Equal(t, 19, resp.Usage.TotalTokens)

	assert.Equal(t, "llama3", captured.Model)
	assert.Equal(t, "say something", captured.Prompt)
	assert.Equal(t, "be brief", captured.System)
	assert.False(t, captured.Stream)
	assert.Equal(t, 64, captured.MaxTokens)
	assert.InDelta(t, 0.1, captured.Temperature, 1e-9)
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	llm, err := NewOllamaLLM(server.URL, "llama3")
	require.NoError(t, err)

	_, err = llm.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, errors.BackendServerError, errors.CodeOf(err))
	assert.True(t, errors.Retryable(err))
}

func TestOllamaGenerateClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	llm, err := NewOllamaLLM(server.URL, "llama3")
	require.NoError(t, err)

	_, err = llm.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, errors.BackendClientError, errors.CodeOf(err))
	assert.False(t, errors.Retryable(err))
}

func TestOllamaGenerateConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	llm, err := NewOllamaLLM(server.URL, "llama3")
	require.NoError(t, err)

	_, err = llm.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, errors.BackendNetworkError, errors.CodeOf(err))
	assert.True(t, errors.Retryable(err))
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorCode
	}{
		{http.StatusTooManyRequests, errors.BackendServerError},
		{http.StatusInternalServerError, errors.BackendServerError},
		{http.StatusBadGateway, errors.BackendServerError},
		{http.StatusUnauthorized, errors.BackendClientError},
		{http.StatusNotFound, errors.BackendClientError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.status), "status %d", tt.status)
	}
}
