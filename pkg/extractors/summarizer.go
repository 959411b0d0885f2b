package extractors

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/models"
)

const DefaultSummaryMaxWords = 150

// DescriptionSummarizer merges the descriptions collected for an entity, or
// a pair of entities, into a single summary.
type DescriptionSummarizer struct {
	llm             models.LLM
	prompt          string
	maxInputTokens  int
	maxOutputTokens int
}

func NewDescriptionSummarizer(llm models.LLM, cfg *config.GraphRAGConfig) *DescriptionSummarizer {
	return &DescriptionSummarizer{
		llm:             llm,
		prompt:          promptOrDefault(cfg.CustomPrompts.Summary, summaryPromptTemplate),
		maxInputTokens:  cfg.SummaryMaxInputTokens,
		maxOutputTokens: cfg.SummaryMaxOutputTokens,
	}
}

// Summarize returns a single description for name. When only one distinct
// description exists it is returned without calling the LLM.
func (ds *DescriptionSummarizer) Summarize(
	ctx context.Context,
	name string,
	descriptions []string,
) (string, error) {
	descriptions = uniqueNonEmpty(descriptions)
	switch len(descriptions) {
	case 0:
		return "", nil
	case 1:
		return descriptions[0], nil
	}

	if ds.maxInputTokens > 0 {
		var err error
		descriptions, err = truncateByTokens(ds.llm, descriptions, ds.maxInputTokens)
		if err != nil {
			return "", NewExtractorError("summary token count failed", err)
		}
	}

	prompt, err := internal.ParsePrompt(ds.prompt, SummaryPromptData{
		EntityName:   name,
		Descriptions: descriptions,
		MaxWords:     DefaultSummaryMaxWords,
	})
	if err != nil {
		return "", NewExtractorError("summary prompt failed", err)
	}

	var opts []llms.CallOption
	if ds.maxOutputTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(ds.maxOutputTokens))
	}

	summary, err := ds.llm.Call(ctx, prompt, opts...)
	if err != nil {
		return "", NewExtractorError("summary call failed", err)
	}

	return strings.TrimSpace(summary), nil
}

// SummarizeEntity summarizes the descriptions of a single entity.
func (ds *DescriptionSummarizer) SummarizeEntity(
	ctx context.Context,
	e models.EntityDescriptions,
) (models.EntitySummary, error) {
	summary, err := ds.Summarize(ctx, e.Name, e.Descriptions)
	if err != nil {
		return models.EntitySummary{}, err
	}
	return models.EntitySummary{Name: e.Name, Summary: summary}, nil
}

// SummarizeRelationship summarizes the descriptions of every relationship
// between a pair of entities.
func (ds *DescriptionSummarizer) SummarizeRelationship(
	ctx context.Context,
	r models.RelationshipDescriptions,
) (models.RelationshipSummary, error) {
	summary, err := ds.Summarize(ctx, r.Source+", "+r.Target, r.Descriptions)
	if err != nil {
		return models.RelationshipSummary{}, err
	}
	return models.RelationshipSummary{
		Source:  r.Source,
		Target:  r.Target,
		Summary: summary,
		Weight:  len(r.Descriptions),
	}, nil
}

func uniqueNonEmpty(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
