package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/getzep/graphrag/config"
)

// NewTestConfig returns a valid config that needs no environment.
func NewTestConfig() *config.Config {
	return &config.Config{
		LLM: config.LLM{
			Service:        "openai",
			Model:          "gpt-4o",
			OpenAIAPIKey:   "test-key",
			RequestTimeout: 5 * time.Second,
			MaxAttempts:    1,
		},
		Neo4j: config.Neo4jConfig{
			URI:                  "bolt://localhost:7687",
			Username:             "neo4j",
			Database:             "neo4j",
			GDSVersionConstraint: ">= 2.5.0",
			SkipPluginCheck:      true,
		},
		GraphRAG: config.GraphRAGConfig{
			MaxWorkers:                4,
			SummaryMaxInputTokens:     4000,
			CommunityMaxInputTokens:   8000,
			ExtractionMaxOutputTokens: 4000,
			SummaryMaxOutputTokens:    500,
		},
		Tasks: config.TasksConfig{
			Throttle:   100,
			MaxRetries: 0,
			Timeout:    30 * time.Second,
		},
		Log: config.LogConfig{Level: "debug", Format: "text"},
	}
}

// RandomTexts returns n distinct sentences.
func RandomTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("%d. %s", i, gofakeit.Sentence(12))
	}
	return texts
}
