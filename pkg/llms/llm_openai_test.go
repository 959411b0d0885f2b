package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/config"
)

func completionHandler(t *testing.T, content string, onRequest func(r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if onRequest != nil {
			onRequest(r)
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
		require.NoError(t, err)
	}
}

func newTestLLM(t *testing.T, cfg *config.Config) *OpenAILLM {
	t.Helper()
	l := &OpenAILLM{}
	require.NoError(t, l.configure(cfg))
	return l
}

func TestOpenAILLM_Call_OpenAIEndpoint(t *testing.T) {
	var path, auth string
	srv := httptest.NewServer(completionHandler(t, "  (\"entity\"<|>TOMAZ)  ", func(r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	l := newTestLLM(t, &config.Config{
		LLM: config.LLM{
			Model:          "gpt-4o",
			OpenAIAPIKey:   "test-key",
			OpenAIEndpoint: srv.URL + "/v1",
			MaxAttempts:    1,
			RequestTimeout: 5 * time.Second,
		},
	})

	result, err := l.Call(context.Background(), "extract")
	require.NoError(t, err)

	assert.Equal(t, "(\"entity\"<|>TOMAZ)", result)
	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Bearer test-key", auth)
}

func TestOpenAILLM_Call_AzureDeployment(t *testing.T) {
	var path, apiVersion, apiKey string
	srv := httptest.NewServer(completionHandler(t, "summary", func(r *http.Request) {
		path = r.URL.Path
		apiVersion = r.URL.Query().Get("api-version")
		apiKey = r.Header.Get("api-key")
	}))
	defer srv.Close()

	l := newTestLLM(t, &config.Config{
		LLM: config.LLM{
			Model:                 "gpt-4o",
			OpenAIAPIKey:          "azure-key",
			AzureOpenAIEndpoint:   srv.URL,
			AzureOpenAIDeployment: "gpt-4o-prod",
			AzureOpenAIAPIVersion: "2024-08-01-preview",
			MaxAttempts:           1,
			RequestTimeout:        5 * time.Second,
		},
	})

	result, err := l.Call(context.Background(), "summarize")
	require.NoError(t, err)

	assert.Equal(t, "summary", result)
	assert.Equal(t, "/openai/deployments/gpt-4o-prod/chat/completions", path)
	assert.Equal(t, "2024-08-01-preview", apiVersion)
	assert.Equal(t, "azure-key", apiKey)
}

func TestOpenAILLM_Call_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"context length exceeded","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	l := newTestLLM(t, &config.Config{
		LLM: config.LLM{
			Model:          "gpt-4o",
			OpenAIAPIKey:   "test-key",
			OpenAIEndpoint: srv.URL,
			MaxAttempts:    3,
			RequestTimeout: 5 * time.Second,
		},
	})

	_, err := l.Call(context.Background(), "too long")
	require.Error(t, err)

	var llmErr *LLMError
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAILLM_NotInitialized(t *testing.T) {
	l := &OpenAILLM{}

	_, err := l.Call(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrLLMNotInitialized)

	_, err = l.GetTokenCount("text")
	assert.ErrorIs(t, err, ErrLLMNotInitialized)
}

func TestConfigureClient(t *testing.T) {
	httpClient := &http.Client{}

	t.Run("openai", func(t *testing.T) {
		options := configureClient(&config.Config{
			LLM: config.LLM{Model: "gpt-4o", OpenAIAPIKey: "key"},
		}, httpClient)
		assert.Len(t, options, 3)
	})

	t.Run("openai with endpoint and org", func(t *testing.T) {
		options := configureClient(&config.Config{
			LLM: config.LLM{
				Model:          "gpt-4o",
				OpenAIAPIKey:   "key",
				OpenAIEndpoint: "http://localhost:8080/v1",
				OpenAIOrgID:    "org",
			},
		}, httpClient)
		assert.Len(t, options, 5)
	})

	t.Run("azure", func(t *testing.T) {
		options := configureClient(&config.Config{
			LLM: config.LLM{
				OpenAIAPIKey:          "key",
				AzureOpenAIEndpoint:   "https://example.openai.azure.com",
				AzureOpenAIDeployment: "gpt-4o",
				AzureOpenAIAPIVersion: "2024-08-01-preview",
			},
		}, httpClient)
		assert.Len(t, options, 6)
	})
}
