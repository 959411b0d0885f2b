package llms

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getzep/graphrag/config"
)

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("bad request", func(t *testing.T) {
		retry, _ := retryPolicy(ctx, &http.Response{StatusCode: http.StatusBadRequest}, nil)
		assert.False(t, retry)
	})

	t.Run("rate limited", func(t *testing.T) {
		retry, err := retryPolicy(ctx, &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
		assert.True(t, retry)
		assert.NoError(t, err)
	})

	t.Run("server error", func(t *testing.T) {
		retry, _ := retryPolicy(ctx, &http.Response{StatusCode: http.StatusBadGateway}, nil)
		assert.True(t, retry)
	})

	t.Run("ok", func(t *testing.T) {
		retry, _ := retryPolicy(ctx, &http.Response{StatusCode: http.StatusOK}, nil)
		assert.False(t, retry)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		retry, err := retryPolicy(cctx, nil, errors.New("boom"))
		assert.False(t, retry)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewLLMClient_InvalidService(t *testing.T) {
	_, err := NewLLMClient(context.Background(), &config.Config{LLM: config.LLM{Service: "anthropic"}})
	assert.Error(t, err)
}

func TestLLMError(t *testing.T) {
	cause := errors.New("timeout")
	err := NewLLMError("completion request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "completion request failed")
}
