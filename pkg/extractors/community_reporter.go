package extractors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/models"
)

var ErrInvalidReport = errors.New("invalid community report")

// CommunityReporter writes a JSON report describing a community from its
// member entities and their relationships.
type CommunityReporter struct {
	llm            models.LLM
	prompt         string
	maxInputTokens int
}

func NewCommunityReporter(llm models.LLM, cfg *config.GraphRAGConfig) *CommunityReporter {
	return &CommunityReporter{
		llm:            llm,
		prompt:         promptOrDefault(cfg.CustomPrompts.CommunityReport, communityReportPromptTemplate),
		maxInputTokens: cfg.CommunityMaxInputTokens,
	}
}

// Report generates the report for info. If the LLM output cannot be parsed
// after one retry, the raw output is kept as the summary.
func (cr *CommunityReporter) Report(ctx context.Context, info models.CommunityInfo) (*models.CommunityReport, error) {
	input, err := cr.communityContext(info)
	if err != nil {
		return nil, NewExtractorError("community context failed", err)
	}

	prompt, err := internal.ParsePrompt(cr.prompt, CommunityReportPromptData{InputText: input})
	if err != nil {
		return nil, NewExtractorError("community report prompt failed", err)
	}

	var output string
	for attempt := 1; attempt <= 2; attempt++ {
		output, err = cr.llm.Call(ctx, prompt, llms.WithJSONMode())
		if err != nil {
			return nil, NewExtractorError("community report call failed", err)
		}

		report, err := ParseCommunityReport(output)
		if err == nil {
			report.CommunityID = info.ID
			report.Level = info.Level
			return report, nil
		}
		log.Warnf("community %s report attempt %d unparseable: %v", info.ID, attempt, err)
	}

	return &models.CommunityReport{
		CommunityID: info.ID,
		Level:       info.Level,
		Summary:     strings.TrimSpace(output),
	}, nil
}

// communityContext renders the entity and relationship tables, dropping rows
// that would push the context past the token budget.
func (cr *CommunityReporter) communityContext(info models.CommunityInfo) (string, error) {
	rows := make([]string, 0, len(info.Nodes)+len(info.Relationships)+2)
	rows = append(rows, "-----Entities-----\nid|entity|type|description")
	for i, n := range info.Nodes {
		rows = append(rows, fmt.Sprintf("%d|%s|%s|%s", i, n.Name, n.Type, flatten(n.Summary)))
	}
	rows = append(rows, "\n-----Relationships-----\nid|source|target|description")
	for i, r := range info.Relationships {
		rows = append(rows, fmt.Sprintf("%d|%s|%s|%s", i, r.Source, r.Target, flatten(r.Summary)))
	}

	if cr.maxInputTokens > 0 {
		var err error
		rows, err = truncateByTokens(cr.llm, rows, cr.maxInputTokens)
		if err != nil {
			return "", err
		}
	}

	return strings.Join(rows, "\n"), nil
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseCommunityReport extracts the JSON object from output, tolerating
// markdown fences and surrounding prose.
func ParseCommunityReport(output string) (*models.CommunityReport, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrInvalidReport)
	}

	var report models.CommunityReport
	if err := json.Unmarshal([]byte(output[start:end+1]), &report); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	if report.Title == "" && report.Summary == "" {
		return nil, fmt.Errorf("%w: missing title and summary", ErrInvalidReport)
	}

	return &report, nil
}
