package extractors

import (
	"context"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/models"
)

const DefaultRelationshipStrength = 1.0

// GraphExtractor asks the LLM for entity and relationship tuples found in a
// document and parses them into a ChunkExtraction.
type GraphExtractor struct {
	llm             models.LLM
	prompt          string
	maxOutputTokens int
}

func NewGraphExtractor(llm models.LLM, cfg *config.GraphRAGConfig) *GraphExtractor {
	return &GraphExtractor{
		llm:             llm,
		prompt:          promptOrDefault(cfg.CustomPrompts.Extraction, extractionPromptTemplate),
		maxOutputTokens: cfg.ExtractionMaxOutputTokens,
	}
}

func (ge *GraphExtractor) Extract(
	ctx context.Context,
	doc models.Document,
	entityTypes []string,
) (*models.ChunkExtraction, error) {
	prompt, err := internal.ParsePrompt(ge.prompt, ExtractionPromptData{
		EntityTypes:         entityTypes,
		InputText:           doc.Text,
		TupleDelimiter:      TupleDelimiter,
		RecordDelimiter:     RecordDelimiter,
		CompletionDelimiter: CompletionDelimiter,
	})
	if err != nil {
		return nil, NewExtractorError("extraction prompt failed", err)
	}

	var opts []llms.CallOption
	if ge.maxOutputTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(ge.maxOutputTokens))
	}

	output, err := ge.llm.Call(ctx, prompt, opts...)
	if err != nil {
		return nil, NewExtractorError("extraction call failed", err)
	}

	extraction := ParseExtraction(doc, output, entityTypes)

	log.Debugf(
		"extracted %d entities and %d relationships from chunk %s",
		len(extraction.Entities), len(extraction.Relationships), doc.ID,
	)

	return &extraction, nil
}

// ParseExtraction parses LLM tuple output. Entity names are upper-cased and
// entity types are matched case-insensitively against entityTypes, using the
// allowed spelling. Entities of other types are dropped, as are relationships
// whose endpoints were not extracted from the same output and self-loops.
func ParseExtraction(doc models.Document, output string, entityTypes []string) models.ChunkExtraction {
	allowed := make(map[string]string, len(entityTypes))
	for _, t := range entityTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = t
	}

	extraction := models.ChunkExtraction{Document: doc}
	names := make(map[string]bool)
	seenEntity := make(map[models.Entity]bool)

	var relRecords [][]string

	for _, record := range splitRecords(output) {
		fields := splitFields(record)
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "entity":
			if len(fields) < 4 {
				log.Debugf("skipping malformed entity record: %q", record)
				continue
			}
			entityType, ok := allowed[strings.ToLower(fields[2])]
			if !ok {
				log.Debugf("skipping entity %q of type %q", fields[1], fields[2])
				continue
			}
			e := models.Entity{
				Name:        normalizeName(fields[1]),
				Type:        entityType,
				Description: fields[3],
			}
			if e.Name == "" || seenEntity[e] {
				continue
			}
			seenEntity[e] = true
			names[e.Name] = true
			extraction.Entities = append(extraction.Entities, e)
		case "relationship":
			if len(fields) < 4 {
				log.Debugf("skipping malformed relationship record: %q", record)
				continue
			}
			relRecords = append(relRecords, fields)
		}
	}

	// Relationships are resolved after all entities so record order does not matter.
	for _, fields := range relRecords {
		r := models.Relationship{
			Source:      normalizeName(fields[1]),
			Target:      normalizeName(fields[2]),
			Description: fields[3],
			Strength:    DefaultRelationshipStrength,
		}
		if len(fields) > 4 {
			if s, err := strconv.ParseFloat(fields[4], 64); err == nil {
				r.Strength = s
			}
		}
		if r.Source == r.Target || !names[r.Source] || !names[r.Target] {
			log.Debugf("skipping relationship %s -> %s", r.Source, r.Target)
			continue
		}
		extraction.Relationships = append(extraction.Relationships, r)
	}

	return extraction
}

func splitRecords(output string) []string {
	if i := strings.Index(output, CompletionDelimiter); i >= 0 {
		output = output[:i]
	}

	output = strings.ReplaceAll(output, "```", "")

	var records []string
	for _, chunk := range strings.Split(output, RecordDelimiter) {
		for _, r := range splitTupleLines(chunk) {
			r = strings.TrimSpace(r)
			// drop a fence language tag or other prose before the tuple
			if i := strings.Index(r, "("); i > 0 && !strings.Contains(r[:i], TupleDelimiter) {
				r = r[i:]
			}
			r = strings.TrimPrefix(r, "(")
			r = strings.TrimSuffix(r, ")")
			if r != "" {
				records = append(records, r)
			}
		}
	}
	return records
}

// splitTupleLines splits records separated by newlines instead of the record
// delimiter. A line opening a tuple starts a new record; other lines continue
// the current one.
func splitTupleLines(chunk string) []string {
	var records, current []string
	for _, line := range strings.Split(chunk, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(current) > 0 && strings.HasPrefix(trimmed, "(") && strings.Contains(trimmed, TupleDelimiter) {
			records = append(records, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		records = append(records, strings.Join(current, "\n"))
	}
	return records
}

func splitFields(record string) []string {
	parts := strings.Split(record, TupleDelimiter)
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = cleanField(p)
	}
	return fields
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

func normalizeName(name string) string {
	return strings.ToUpper(cleanField(name))
}
