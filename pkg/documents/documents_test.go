package documents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSplitParagraphs(t *testing.T) {
	text := "Tomaz works for Neo4j.\r\nHe writes Cypher.\n\n\n  Tomaz lives in Grosuplje.  \n\n"
	assert.Equal(t, []string{
		"Tomaz works for Neo4j. He writes Cypher.",
		"Tomaz lives in Grosuplje.",
	}, SplitParagraphs(text))

	assert.Empty(t, SplitParagraphs(" \n\n \n"))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bio.txt", "Tomaz went to school in Grosuplje\n\nTomaz likes graphs\n")
	path := writeFile(t, dir, "manifest.yaml", `
entity_types: [Person, Location]
texts:
  - Tomaz works for Neo4j
files:
  - bio.txt
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Person", "Location"}, m.EntityTypes)
	assert.Equal(t, []string{
		"Tomaz works for Neo4j",
		"Tomaz went to school in Grosuplje",
		"Tomaz likes graphs",
	}, m.Texts)
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeFile(t, dir, "bad.yaml", "texts: [unterminated")
	_, err = LoadManifest(bad)
	assert.Error(t, err)

	missingFile := writeFile(t, dir, "files.yaml", "files: [nope.txt]")
	_, err = LoadManifest(missingFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExample(t *testing.T) {
	m := Example()
	assert.Len(t, m.Texts, 3)
	assert.Equal(t, []string{"Person", "Organization", "Location"}, m.EntityTypes)

	// Document IDs are derived from the text, so re-running the example
	// merges into the same chunks.
	assert.Equal(t, models.NewDocument(m.Texts[0]).ID, models.NewDocument(Example().Texts[0]).ID)
	assert.NotEqual(t, models.NewDocument(m.Texts[0]).ID, models.NewDocument(m.Texts[1]).ID)
}
