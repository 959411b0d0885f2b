// Package documents loads the texts and entity types fed to the GraphRAG
// pipeline.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists the texts to index and the entity types the LLM may assign.
// Files are read with LoadTextFiles and resolved relative to the manifest.
type Manifest struct {
	EntityTypes []string `yaml:"entity_types"`
	Texts       []string `yaml:"texts"`
	Files       []string `yaml:"files"`
}

// Example returns the texts and entity types indexed by `graphrag run` when
// no input is given.
func Example() *Manifest {
	return &Manifest{
		EntityTypes: []string{"Person", "Organization", "Location"},
		Texts: []string{
			"Tomaz works for Neo4j",
			"Tomaz lives in Grosuplje",
			"Tomaz went to school in Grosuplje",
		},
	}
}

// LoadManifest reads a YAML manifest. Texts from the listed files are
// appended after the inline texts.
func LoadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if len(m.Files) > 0 {
		dir := filepath.Dir(path)
		files := make([]string, len(m.Files))
		for i, f := range m.Files {
			if !filepath.IsAbs(f) {
				f = filepath.Join(dir, f)
			}
			files[i] = f
		}
		texts, err := LoadTextFiles(files)
		if err != nil {
			return nil, err
		}
		m.Texts = append(m.Texts, texts...)
	}

	return &m, nil
}

// LoadTextFiles returns one text per non-empty paragraph of each file.
func LoadTextFiles(paths []string) ([]string, error) {
	var texts []string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read text file: %w", err)
		}
		texts = append(texts, SplitParagraphs(string(b))...)
	}
	return texts, nil
}

// SplitParagraphs splits text on blank lines. Lines within a paragraph are
// joined with a single space.
func SplitParagraphs(text string) []string {
	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return paragraphs
}
