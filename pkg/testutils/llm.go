package testutils

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"
	"github.com/tmc/langchaingo/llms"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/pkg/models"
)

var _ models.LLM = &MockLLM{}

// MockLLM is a testify mock of models.LLM. Call options are not passed to
// the mock. Token counts are whitespace separated words.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Call(ctx context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) GetTokenCount(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (m *MockLLM) Init(_ context.Context, _ *config.Config) error {
	return nil
}

// PromptContaining matches prompts that contain every substring.
func PromptContaining(substrings ...string) any {
	return mock.MatchedBy(func(prompt string) bool {
		for _, s := range substrings {
			if !strings.Contains(prompt, s) {
				return false
			}
		}
		return true
	})
}
