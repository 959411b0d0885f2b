package llms

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/pkg/models"
)

const tokenEncoding = "cl100k_base"

var _ models.LLM = &OpenAILLM{}

func NewOpenAILLM(ctx context.Context, cfg *config.Config) (*OpenAILLM, error) {
	l := &OpenAILLM{}
	err := l.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// OpenAILLM talks to OpenAI, an OpenAI compatible endpoint, or an Azure
// OpenAI deployment.
type OpenAILLM struct {
	llm         llms.Model
	tkm         *tiktoken.Tiktoken
	temperature float64
	timeout     time.Duration
}

func (l *OpenAILLM) Init(_ context.Context, cfg *config.Config) error {
	tkm, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return NewLLMError("unable to load tokenizer", err)
	}
	l.tkm = tkm

	return l.configure(cfg)
}

func (l *OpenAILLM) configure(cfg *config.Config) error {
	timeout := cfg.LLM.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	maxAttempts := cfg.LLM.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	httpClient := NewRetryableHTTPClient(maxAttempts, timeout)

	llm, err := openai.New(configureClient(cfg, httpClient)...)
	if err != nil {
		return NewLLMError("unable to create openai client", err)
	}

	l.llm = llm
	l.temperature = cfg.LLM.Temperature
	l.timeout = timeout

	return nil
}

// Call sends prompt as a single user message and returns the completion text.
func (l *OpenAILLM) Call(ctx context.Context,
	prompt string,
	options ...llms.CallOption,
) (string, error) {
	// If the LLM is not initialized, return an error
	if l.llm == nil {
		return "", NewLLMError("call failed", ErrLLMNotInitialized)
	}

	options = append([]llms.CallOption{llms.WithTemperature(l.temperature)}, options...)

	thisCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(thisCtx, l.llm, prompt, options...)
	if err != nil {
		return "", NewLLMError("completion request failed", err)
	}

	return strings.TrimSpace(completion), nil
}

// GetTokenCount returns the number of tokens in the text
func (l *OpenAILLM) GetTokenCount(text string) (int, error) {
	if l.tkm == nil {
		return 0, NewLLMError("token count failed", ErrLLMNotInitialized)
	}
	return len(l.tkm.Encode(text, nil, nil)), nil
}

// configureClient builds the langchaingo options. Azure deployments are
// addressed by deployment name, so the deployment replaces the model.
func configureClient(cfg *config.Config, httpClient *http.Client) []openai.Option {
	options := []openai.Option{
		openai.WithHTTPClient(httpClient),
		openai.WithToken(cfg.LLM.OpenAIAPIKey),
	}

	if cfg.LLM.AzureOpenAIEndpoint != "" {
		return append(
			options,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(cfg.LLM.AzureOpenAIEndpoint),
			openai.WithAPIVersion(cfg.LLM.AzureOpenAIAPIVersion),
			openai.WithModel(cfg.LLM.AzureOpenAIDeployment),
		)
	}

	options = append(options, openai.WithModel(cfg.LLM.Model))

	if cfg.LLM.OpenAIEndpoint != "" {
		options = append(options, openai.WithBaseURL(cfg.LLM.OpenAIEndpoint))
	}
	if cfg.LLM.OpenAIOrgID != "" {
		options = append(options, openai.WithOrganization(cfg.LLM.OpenAIOrgID))
	}

	return options
}
