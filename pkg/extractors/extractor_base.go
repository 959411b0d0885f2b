package extractors

import (
	"fmt"

	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/models"
)

var log = internal.GetLogger()

// Custom error type
type ExtractorError struct {
	message       string
	originalError error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("extractor error: %s (original error: %v)", e.message, e.originalError)
}

func (e *ExtractorError) Unwrap() error {
	return e.originalError
}

func NewExtractorError(message string, originalError error) *ExtractorError {
	return &ExtractorError{message: message, originalError: originalError}
}

// promptOrDefault returns custom when it is set.
func promptOrDefault(custom, fallback string) string {
	if custom != "" {
		return custom
	}
	return fallback
}

// truncateByTokens keeps the leading items whose combined token count fits
// within maxTokens. At least one item is always kept.
func truncateByTokens(llm models.LLM, items []string, maxTokens int) ([]string, error) {
	total := 0
	for i, item := range items {
		n, err := llm.GetTokenCount(item)
		if err != nil {
			return nil, err
		}
		total += n
		if total > maxTokens && i > 0 {
			log.Debugf("truncated %d of %d items to fit %d tokens", len(items)-i, len(items), maxTokens)
			return items[:i], nil
		}
	}
	return items, nil
}
