package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/documents"
	"github.com/getzep/graphrag/pkg/graphrag"
	"github.com/getzep/graphrag/pkg/models"
	"github.com/getzep/graphrag/pkg/testutils"
)

func init() {
	log = internal.GetLogger()
}

func TestResolveInput_DefaultsToExample(t *testing.T) {
	m, err := resolveInput(inputOptions{})
	require.NoError(t, err)
	assert.Equal(t, documents.Example(), m)

	m, err = resolveInput(inputOptions{entityTypes: []string{"Person"}})
	require.NoError(t, err)
	assert.Equal(t, documents.Example().Texts, m.Texts)
	assert.Equal(t, []string{"Person"}, m.EntityTypes)
}

func TestResolveInput_Combined(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("entity_types: [Person]\ntexts: [Tomaz works for Neo4j]\n"), 0o600))
	file := filepath.Join(dir, "more.txt")
	require.NoError(t, os.WriteFile(file, []byte("Tomaz lives in Grosuplje\n\nTomaz went to school in Grosuplje"), 0o600))

	m, err := resolveInput(inputOptions{
		manifest: manifest,
		texts:    []string{"Neo4j is in Malmo, Sweden"},
		files:    []string{file},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Person"}, m.EntityTypes)
	assert.Equal(t, []string{
		"Tomaz works for Neo4j",
		"Neo4j is in Malmo, Sweden",
		"Tomaz lives in Grosuplje",
		"Tomaz went to school in Grosuplje",
	}, m.Texts)
}

func TestResolveInput_EmptyManifestIsNotReplaced(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("entity_types: [Person]\n"), 0o600))

	m, err := resolveInput(inputOptions{manifest: manifest})
	require.NoError(t, err)
	assert.Empty(t, m.Texts)
}

func TestDatabaseOptions(t *testing.T) {
	assert.Len(t, databaseOptions{}.clientOptions(), 2)
	assert.Len(t, databaseOptions{read: "a", write: "b", allLevels: true}.clientOptions(), 3)
}

func TestCommandsCloseThroughClient(t *testing.T) {
	ctx := context.Background()
	store := testutils.NewFakeGraphStore()
	appState := &models.AppState{
		LLMClient:  &testutils.MockLLM{},
		GraphStore: store,
		Config:     testutils.NewTestConfig(),
	}

	client, err := graphrag.NewClient(ctx, appState)
	require.NoError(t, err)

	require.NoError(t, runSummarize(ctx, appState, client))
	assert.Zero(t, store.Closed)

	closeStore(ctx, client)
	closeStore(ctx, client)
	assert.Equal(t, 1, store.Closed)
}
