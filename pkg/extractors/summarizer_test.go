package extractors

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/pkg/models"
	"github.com/getzep/graphrag/pkg/testutils"
)

func TestDescriptionSummarizer_SingleDescriptionSkipsLLM(t *testing.T) {
	llm := &testutils.MockLLM{}
	ds := NewDescriptionSummarizer(llm, &testutils.NewTestConfig().GraphRAG)

	summary, err := ds.Summarize(context.Background(), "TOMAZ", []string{"Tomaz works for Neo4j", "Tomaz works for Neo4j ", ""})
	require.NoError(t, err)

	assert.Equal(t, "Tomaz works for Neo4j", summary)
	llm.AssertNotCalled(t, "Call", mock.Anything, mock.Anything)
}

func TestDescriptionSummarizer_SummarizeEntity(t *testing.T) {
	ctx := context.Background()
	llm := &testutils.MockLLM{}
	llm.On("Call", ctx, testutils.PromptContaining(
		"Entities: TOMAZ",
		"- Tomaz works for Neo4j",
		"- Tomaz lives in Grosuplje",
	)).Return("  Tomaz works for Neo4j and lives in Grosuplje.\n", nil).Once()

	ds := NewDescriptionSummarizer(llm, &testutils.NewTestConfig().GraphRAG)

	summary, err := ds.SummarizeEntity(ctx, models.EntityDescriptions{
		Name:         "TOMAZ",
		Descriptions: []string{"Tomaz works for Neo4j", "Tomaz lives in Grosuplje"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.EntitySummary{
		Name:    "TOMAZ",
		Summary: "Tomaz works for Neo4j and lives in Grosuplje.",
	}, summary)
	llm.AssertExpectations(t)
}

func TestDescriptionSummarizer_SummarizeRelationship(t *testing.T) {
	ctx := context.Background()
	llm := &testutils.MockLLM{}
	llm.On("Call", ctx, testutils.PromptContaining("Entities: GROSUPLJE, TOMAZ")).
		Return("Tomaz lives and went to school in Grosuplje", nil).Once()

	ds := NewDescriptionSummarizer(llm, &testutils.NewTestConfig().GraphRAG)

	summary, err := ds.SummarizeRelationship(ctx, models.RelationshipDescriptions{
		Source:       "GROSUPLJE",
		Target:       "TOMAZ",
		Descriptions: []string{"Tomaz lives in Grosuplje", "Tomaz went to school in Grosuplje"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Weight)
	assert.Equal(t, "Tomaz lives and went to school in Grosuplje", summary.Summary)
	llm.AssertExpectations(t)
}

func TestDescriptionSummarizer_TruncatesInput(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("word ", 80)

	llm := &testutils.MockLLM{}
	llm.On("Call", ctx, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "- first") && !strings.Contains(prompt, "- last")
	})).Return("summary", nil).Once()

	cfg := testutils.NewTestConfig().GraphRAG
	cfg.SummaryMaxInputTokens = 100

	ds := NewDescriptionSummarizer(llm, &cfg)

	_, err := ds.Summarize(ctx, "X", []string{"first " + long, "second", "last " + long})
	require.NoError(t, err)
	llm.AssertExpectations(t)
}

func TestTruncateByTokens_KeepsFirstItem(t *testing.T) {
	items := []string{strings.Repeat("a ", 50), "b"}

	kept, err := truncateByTokens(&testutils.MockLLM{}, items, 10)
	require.NoError(t, err)

	assert.Equal(t, items[:1], kept)
}
