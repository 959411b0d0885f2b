package graphrag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/getzep/graphrag/internal"
	"github.com/getzep/graphrag/pkg/extractors"
	"github.com/getzep/graphrag/pkg/models"
)

const DefaultMaxWorkers = 10

var log = internal.GetLogger()

var tracer = otel.Tracer("github.com/getzep/graphrag/pkg/graphrag")

// Client builds a GraphRAG index in Neo4j: it extracts entities and
// relationships from texts, summarizes them, and detects and reports on
// communities.
type Client struct {
	store      models.GraphStore
	extractor  *extractors.GraphExtractor
	summarizer *extractors.DescriptionSummarizer
	reporter   *extractors.CommunityReporter
	maxWorkers int
	defaults   Options

	closeOnce sync.Once
	closeErr  error
}

// NewClient returns a Client using the store and LLM in appState. Unless
// disabled in config, the APOC and GDS plugins are checked first. opts set
// the client's default databases.
func NewClient(ctx context.Context, appState *models.AppState, opts ...Option) (*Client, error) {
	if appState == nil || appState.Config == nil {
		return nil, errors.New("graphrag client requires an app state with config")
	}
	if appState.GraphStore == nil {
		return nil, errors.New("graphrag client requires a graph store")
	}
	if appState.LLMClient == nil {
		return nil, errors.New("graphrag client requires an llm client")
	}

	cfg := appState.Config

	if !cfg.Neo4j.SkipPluginCheck {
		if err := appState.GraphStore.CheckPlugins(ctx); err != nil {
			return nil, err
		}
	}

	defaults, err := resolveOptions(Options{}, opts...)
	if err != nil {
		return nil, err
	}

	maxWorkers := cfg.GraphRAG.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	return &Client{
		store:      appState.GraphStore,
		extractor:  extractors.NewGraphExtractor(appState.LLMClient, &cfg.GraphRAG),
		summarizer: extractors.NewDescriptionSummarizer(appState.LLMClient, &cfg.GraphRAG),
		reporter:   extractors.NewCommunityReporter(appState.LLMClient, &cfg.GraphRAG),
		maxWorkers: maxWorkers,
		defaults:   defaults,
	}, nil
}

// ExtractNodesAndRels extracts entities of allowedEntityTypes and their
// relationships from each text and imports them into the write database.
func (c *Client) ExtractNodesAndRels(
	ctx context.Context,
	texts []string,
	allowedEntityTypes []string,
	opts ...Option,
) (*models.ExtractionResult, error) {
	o, err := resolveOptions(c.defaults, opts...)
	if err != nil {
		return nil, err
	}

	docs := documents(texts)
	if len(docs) == 0 {
		return nil, models.ErrNoTexts
	}
	entityTypes := nonEmpty(allowedEntityTypes)
	if len(entityTypes) == 0 {
		return nil, models.ErrNoEntityTypes
	}

	ctx, span := tracer.Start(ctx, "graphrag.extract", trace.WithAttributes(
		attribute.Int("graphrag.documents", len(docs)),
		attribute.String("graphrag.write_database", o.WriteDatabase),
	))
	defer span.End()

	extractions, err := fanOut(ctx, c.maxWorkers, docs,
		func(ctx context.Context, doc models.Document) (models.ChunkExtraction, error) {
			ex, err := c.extractor.Extract(ctx, doc, entityTypes)
			if err != nil {
				return models.ChunkExtraction{}, fmt.Errorf("extracting document %s: %w", doc.ID, err)
			}
			return *ex, nil
		})
	if err != nil {
		return nil, spanError(span, err)
	}

	if err := c.store.EnsureConstraints(ctx, o.WriteDatabase); err != nil {
		return nil, spanError(span, err)
	}
	if err := c.store.ImportExtractions(ctx, o.WriteDatabase, extractions); err != nil {
		return nil, spanError(span, err)
	}

	result := &models.ExtractionResult{Documents: len(docs)}
	for _, ex := range extractions {
		result.Entities += len(ex.Entities)
		result.Relationships += len(ex.Relationships)
	}

	log.WithFields(map[string]any{
		"documents":     result.Documents,
		"entities":      result.Entities,
		"relationships": result.Relationships,
	}).Info("extraction imported")

	return result, nil
}

// SummarizeNodesAndRels replaces the accumulated descriptions of entities
// and entity pairs with a single summary. Descriptions are read from the
// read database and summaries written to the write database.
func (c *Client) SummarizeNodesAndRels(ctx context.Context, opts ...Option) (*models.SummaryResult, error) {
	o, err := resolveOptions(c.defaults, opts...)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "graphrag.summarize", trace.WithAttributes(
		attribute.String("graphrag.read_database", o.ReadDatabase),
		attribute.String("graphrag.write_database", o.WriteDatabase),
	))
	defer span.End()

	entities, err := c.store.EntityDescriptions(ctx, o.ReadDatabase)
	if err != nil {
		return nil, spanError(span, err)
	}
	entitySummaries, err := fanOut(ctx, c.maxWorkers, entities, c.summarizer.SummarizeEntity)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := c.store.PutEntitySummaries(ctx, o.WriteDatabase, entitySummaries); err != nil {
		return nil, spanError(span, err)
	}
	singleEntities, err := c.store.CopySingleEntityDescriptions(ctx, o.WriteDatabase)
	if err != nil {
		return nil, spanError(span, err)
	}

	rels, err := c.store.RelationshipDescriptions(ctx, o.ReadDatabase)
	if err != nil {
		return nil, spanError(span, err)
	}
	relSummaries, err := fanOut(ctx, c.maxWorkers, rels, c.summarizer.SummarizeRelationship)
	if err != nil {
		return nil, spanError(span, err)
	}
	if err := c.store.PutRelationshipSummaries(ctx, o.WriteDatabase, relSummaries); err != nil {
		return nil, spanError(span, err)
	}
	singleRels, err := c.store.CopySingleRelationshipDescriptions(ctx, o.WriteDatabase)
	if err != nil {
		return nil, spanError(span, err)
	}

	result := &models.SummaryResult{
		Nodes:         len(entitySummaries) + singleEntities,
		Relationships: len(relSummaries) + singleRels,
	}

	log.WithFields(map[string]any{
		"llm_nodes":         len(entitySummaries),
		"copied_nodes":      singleEntities,
		"llm_relationships": len(relSummaries),
		"copied_rels":       singleRels,
	}).Info("summarization complete")

	return result, nil
}

// SummarizeCommunities detects communities in the write database, then
// writes a report for each community read back from the read database.
// Only level 0 communities are reported unless WithAllLevels is given.
func (c *Client) SummarizeCommunities(ctx context.Context, opts ...Option) (*models.CommunityResult, error) {
	o, err := resolveOptions(c.defaults, opts...)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "graphrag.communities", trace.WithAttributes(
		attribute.String("graphrag.read_database", o.ReadDatabase),
		attribute.String("graphrag.write_database", o.WriteDatabase),
		attribute.Bool("graphrag.all_levels", o.AllLevels),
	))
	defer span.End()

	stats, err := c.store.DetectCommunities(ctx, o.WriteDatabase)
	if err != nil {
		return nil, spanError(span, err)
	}
	log.WithFields(map[string]any{
		"communities": stats.Communities,
		"levels":      stats.Levels,
		"modularity":  stats.Modularity,
	}).Info("communities detected")

	levels := []int{0}
	if o.AllLevels {
		levels, err = c.store.CommunityLevels(ctx, o.ReadDatabase)
		if err != nil {
			return nil, spanError(span, err)
		}
	}

	infos, err := c.store.CommunityInfo(ctx, o.ReadDatabase, levels)
	if err != nil {
		return nil, spanError(span, err)
	}
	infos = reportable(infos)

	reports, err := fanOut(ctx, c.maxWorkers, infos,
		func(ctx context.Context, info models.CommunityInfo) (models.CommunityReport, error) {
			report, err := c.reporter.Report(ctx, info)
			if err != nil {
				return models.CommunityReport{}, fmt.Errorf("reporting community %s: %w", info.ID, err)
			}
			return *report, nil
		})
	if err != nil {
		return nil, spanError(span, err)
	}

	if err := c.store.PutCommunityReports(ctx, o.WriteDatabase, reports); err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.Int("graphrag.community_reports", len(reports)))

	return &models.CommunityResult{Communities: len(reports), Levels: levels}, nil
}

// minCommunitySize is the smallest community worth a report.
const minCommunitySize = 2

func reportable(infos []models.CommunityInfo) []models.CommunityInfo {
	out := make([]models.CommunityInfo, 0, len(infos))
	for _, info := range infos {
		if len(info.Nodes) < minCommunitySize {
			log.Debugf("skipping community %s with %d members", info.ID, len(info.Nodes))
			continue
		}
		out = append(out, info)
	}
	return out
}

// Close releases the graph store. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.closeErr = c.store.Close(ctx)
	})
	return c.closeErr
}

// fanOut applies fn to every item with at most limit calls in flight. The
// first error cancels the remaining calls. Results keep the order of items.
func fanOut[T, R any](
	ctx context.Context,
	limit int,
	items []T,
	fn func(context.Context, T) (R, error),
) ([]R, error) {
	results := make([]R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// documents converts texts to documents, skipping blank and repeated texts.
func documents(texts []string) []models.Document {
	seen := make(map[string]bool, len(texts))
	docs := make([]models.Document, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		doc := models.NewDocument(text)
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		docs = append(docs, doc)
	}
	return docs
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
