package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/pkg/graphrag"
	"github.com/getzep/graphrag/pkg/models"
	"github.com/getzep/graphrag/pkg/testutils"
)

const extractionOutput = `("entity"<|>Tomaz<|>Person<|>Tomaz works at Neo4j)##("entity"<|>Neo4j<|>Organization<|>A graph database company)##("relationship"<|>TOMAZ<|>NEO4J<|>Tomaz is employed by Neo4j<|>8)<|COMPLETE|>`

func newTestAppState(store models.GraphStore, llm models.LLM) *models.AppState {
	return &models.AppState{
		LLMClient:  llm,
		GraphStore: store,
		Config:     testutils.NewTestConfig(),
	}
}

func newTestClient(t *testing.T, appState *models.AppState) *graphrag.Client {
	t.Helper()
	client, err := graphrag.NewClient(context.Background(), appState)
	require.NoError(t, err)
	return client
}

func TestRunPipeline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := testutils.NewFakeGraphStore()
	store.Stats = models.CommunityStats{Communities: 1, Levels: 1}
	store.Communities = []models.CommunityInfo{{
		ID:    "0-0",
		Level: 0,
		Nodes: []models.CommunityNode{
			{Name: "TOMAZ", Type: "Person", Summary: "Tomaz works at Neo4j"},
			{Name: "NEO4J", Type: "Organization", Summary: "A graph database company"},
		},
	}}

	llm := &testutils.MockLLM{}
	llm.On("Call", mock.Anything, testutils.PromptContaining("Text: Tomaz works for Neo4j")).
		Return(extractionOutput, nil).Once()
	llm.On("Call", mock.Anything, testutils.PromptContaining("-----Entities-----")).
		Return(`{"title": "Tomaz at Neo4j", "summary": "Tomaz works at Neo4j"}`, nil).Once()

	appState := newTestAppState(store, llm)

	results, err := RunPipeline(ctx, appState, newTestClient(t, appState), models.PipelineRequest{
		RunID:         "run-1",
		Texts:         []string{"Tomaz works for Neo4j"},
		EntityTypes:   []string{"Person", "Organization"},
		WriteDatabase: "graphrag",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, stage := range Stages {
		assert.Equal(t, stage, results[i].Stage)
		assert.Equal(t, "run-1", results[i].RunID)
	}
	assert.Equal(t, "Successfully extracted and imported 1 relationships", results[0].Result)
	assert.Equal(t, "Successfully summarized nodes and relationships", results[1].Result)
	assert.Equal(t, "Generated 1 community summaries", results[2].Result)

	assert.Equal(t, "Tomaz at Neo4j", store.Reports["0-0"].Title)
	assert.Equal(t, "Tomaz works at Neo4j", store.EntitySummaries["TOMAZ"])
	assert.Contains(t, store.Databases, "graphrag")
	assert.NotNil(t, appState.TaskRouter)
	assert.NotNil(t, appState.TaskPublisher)
	llm.AssertExpectations(t)
}

func TestRunPipeline_StageFailureStops(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cause := errors.New("deployment not found")
	store := testutils.NewFakeGraphStore()
	llm := &testutils.MockLLM{}
	llm.On("Call", mock.Anything, mock.Anything).Return("", cause)

	appState := newTestAppState(store, llm)
	results, err := RunPipeline(ctx, appState, newTestClient(t, appState), models.PipelineRequest{
		Texts:       testutils.RandomTexts(3),
		EntityTypes: []string{"Person"},
	})

	assert.ErrorIs(t, err, cause)
	assert.Empty(t, results)
	assert.Zero(t, store.DetectCommunitiesCalls)
	assert.Empty(t, store.Chunks)
}

func TestRunPipeline_InvalidRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	appState := newTestAppState(testutils.NewFakeGraphStore(), &testutils.MockLLM{})
	results, err := RunPipeline(
		ctx,
		appState,
		newTestClient(t, appState),
		models.PipelineRequest{EntityTypes: []string{"Person"}},
	)

	assert.ErrorIs(t, err, models.ErrNoTexts)
	assert.Empty(t, results)
}

func TestRunPipeline_LeavesClientOpen(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := testutils.NewFakeGraphStore()
	appState := newTestAppState(store, &testutils.MockLLM{})
	client := newTestClient(t, appState)

	_, err := RunPipeline(ctx, appState, client, models.PipelineRequest{EntityTypes: []string{"Person"}})
	assert.ErrorIs(t, err, models.ErrNoTexts)
	assert.Zero(t, store.Closed)

	require.NoError(t, client.Close(ctx))
	assert.Equal(t, 1, store.Closed)
}
