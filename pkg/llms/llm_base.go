package llms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/models"
)

const DefaultTemperature = 0.0
const DefaultRequestTimeout = 90 * time.Second
const DefaultMaxAttempts = 5

var ErrLLMNotInitialized = errors.New("llm is not initialized")

var log = internal.GetLogger()

// NewLLMClient returns an LLM client for the configured service.
func NewLLMClient(ctx context.Context, cfg *config.Config) (models.LLM, error) {
	switch cfg.LLM.Service {
	case "openai", "azure", "":
		return NewOpenAILLM(ctx, cfg)
	default:
		return nil, fmt.Errorf("invalid LLM service: %s", cfg.LLM.Service)
	}
}

type LLMError struct {
	message       string
	originalError error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error: %s (original error: %v)", e.message, e.originalError)
}

func (e *LLMError) Unwrap() error {
	return e.originalError
}

func NewLLMError(message string, originalError error) *LLMError {
	return &LLMError{message: message, originalError: originalError}
}

// NewRetryableHTTPClient returns a new retryable HTTP client with the given retryMax and timeout.
// The retryable HTTP transport is wrapped in an OpenTelemetry transport.
func NewRetryableHTTPClient(retryMax int, timeout time.Duration) *http.Client {
	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = retryPolicy

	return &http.Client{
		Transport: otelhttp.NewTransport(
			retryableHTTPClient.StandardClient().Transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}
}

// retryPolicy is a retryablehttp.CheckRetry function. It is used to determine
// whether a request should be retried or not.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Do not retry 400 errors as they're used by OpenAI to indicate maximum
	// context length exceeded
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, err
	}

	if resp != nil && resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.Status).Warn("llm request returned non-OK status")
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}
