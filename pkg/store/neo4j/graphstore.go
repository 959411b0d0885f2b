package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	n4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/pkg/models"
	"github.com/getzep/graphrag/pkg/store"
)

var _ models.GraphStore = &GraphStore{}

var tracer = otel.Tracer("github.com/getzep/graphrag/pkg/store/neo4j")

// NewGraphStore connects to Neo4j and returns a GraphStore backed by it.
func NewGraphStore(ctx context.Context, cfg *config.Neo4jConfig) (*GraphStore, error) {
	driver, err := NewNeo4jConn(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &GraphStore{
		BaseGraphStore: store.BaseGraphStore[n4j.DriverWithContext]{Client: driver},
		cfg:            cfg,
	}, nil
}

type GraphStore struct {
	store.BaseGraphStore[n4j.DriverWithContext]
	cfg *config.Neo4jConfig
}

func (gs *GraphStore) write(
	ctx context.Context,
	database, query string,
	params map[string]any,
) (*n4j.EagerResult, error) {
	return gs.execute(ctx, database, query, params, n4j.ExecuteQueryWithWritersRouting())
}

func (gs *GraphStore) read(
	ctx context.Context,
	database, query string,
	params map[string]any,
) (*n4j.EagerResult, error) {
	return gs.execute(ctx, database, query, params, n4j.ExecuteQueryWithReadersRouting())
}

// execute runs query against database. Errors the driver reports as
// retryable are retried beyond the driver's own transaction retries, which
// do not cover failures to acquire a connection.
func (gs *GraphStore) execute(
	ctx context.Context,
	database, query string,
	params map[string]any,
	routing n4j.ExecuteQueryConfigurationOption,
) (*n4j.EagerResult, error) {
	db := gs.cfg.DatabaseOr(database)

	ctx, span := tracer.Start(ctx, "neo4j.query", trace.WithAttributes(
		attribute.String("db.name", db),
		attribute.String("db.statement", firstLine(query)),
	))
	defer span.End()

	result, err := failsafe.Get(func() (*n4j.EagerResult, error) {
		return n4j.ExecuteQuery(
			ctx, gs.Client, query, params, n4j.EagerResultTransformer,
			n4j.ExecuteQueryWithDatabase(db),
			routing,
		)
	}, transientRetryPolicy(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func transientRetryPolicy(ctx context.Context) retrypolicy.RetryPolicy[*n4j.EagerResult] {
	return retrypolicy.Builder[*n4j.EagerResult]().
		HandleIf(func(_ *n4j.EagerResult, err error) bool {
			return err != nil && ctx.Err() == nil && n4j.IsRetryable(err)
		}).
		WithBackoff(200*time.Millisecond, 5*time.Second).
		WithMaxRetries(3).
		Build()
}

func firstLine(query string) string {
	for _, line := range strings.Split(query, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// CheckPlugins verifies APOC is installed and that GDS satisfies the
// configured version constraint.
func (gs *GraphStore) CheckPlugins(ctx context.Context) error {
	result, err := gs.read(ctx, "", apocVersionQuery, nil)
	if err != nil {
		return models.NewMissingPluginError("APOC", err.Error())
	}
	apocVersion, err := firstString(result, "version")
	if err != nil {
		return models.NewMissingPluginError("APOC", err.Error())
	}
	log.Debugf("APOC version %s", apocVersion)

	result, err = gs.read(ctx, "", gdsVersionQuery, nil)
	if err != nil {
		return models.NewMissingPluginError("GDS", err.Error())
	}

	gdsVersion, err := firstString(result, "version")
	if err != nil {
		return models.NewMissingPluginError("GDS", err.Error())
	}

	return checkGDSVersion(gdsVersion, gs.cfg.GDSVersionConstraint)
}

func checkGDSVersion(version, constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("error parsing gds version constraint %q: %w", constraint, err)
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return models.NewMissingPluginError("GDS", fmt.Sprintf("unable to parse version %q", version))
	}

	if !c.Check(v) {
		return models.NewMissingPluginError(
			"GDS",
			fmt.Sprintf("version %s does not satisfy %s", v, constraint),
		)
	}

	return nil
}

func (gs *GraphStore) EnsureConstraints(ctx context.Context, database string) error {
	for _, q := range constraintQueries {
		if _, err := gs.write(ctx, database, q, nil); err != nil {
			return store.NewStorageError("failed to create constraint", err)
		}
	}
	return nil
}

func (gs *GraphStore) ImportExtractions(
	ctx context.Context,
	database string,
	extractions []models.ChunkExtraction,
) error {
	if len(extractions) == 0 {
		return nil
	}

	result, err := gs.write(ctx, database, importQuery, map[string]any{
		"data": extractionParams(extractions),
	})
	if err != nil {
		return store.NewStorageError("failed to import extractions", err)
	}

	entities, err := firstInt(result, "entities")
	if err != nil {
		return store.NewStorageError("failed to read import counts", err)
	}
	relationships, err := firstInt(result, "relationships")
	if err != nil {
		return store.NewStorageError("failed to read import counts", err)
	}

	log.WithField("database", gs.cfg.DatabaseOr(database)).
		Debugf("imported %d entities and %d relationships", entities, relationships)

	return nil
}

func extractionParams(extractions []models.ChunkExtraction) []map[string]any {
	data := make([]map[string]any, len(extractions))
	for i, ex := range extractions {
		entities := make([]map[string]any, len(ex.Entities))
		for j, e := range ex.Entities {
			entities[j] = map[string]any{
				"entity_name":        e.Name,
				"entity_type":        e.Type,
				"entity_description": e.Description,
			}
		}
		rels := make([]map[string]any, len(ex.Relationships))
		for j, r := range ex.Relationships {
			rels[j] = map[string]any{
				"source_entity":            r.Source,
				"target_entity":            r.Target,
				"relationship_description": r.Description,
				"relationship_strength":    r.Strength,
			}
		}
		data[i] = map[string]any{
			"chunk_id":      ex.Document.ID,
			"chunk_text":    ex.Document.Text,
			"entities":      entities,
			"relationships": rels,
		}
	}
	return data
}

func (gs *GraphStore) EntityDescriptions(
	ctx context.Context,
	database string,
) ([]models.EntityDescriptions, error) {
	result, err := gs.read(ctx, database, entityDescriptionsQuery, nil)
	if err != nil {
		return nil, store.NewStorageError("failed to read entity descriptions", err)
	}

	out := make([]models.EntityDescriptions, 0, len(result.Records))
	for _, r := range result.Records {
		name, err := recordString(r, "name")
		if err != nil {
			return nil, store.NewStorageError("failed to decode entity descriptions", err)
		}
		descriptions, err := recordStrings(r, "descriptions")
		if err != nil {
			return nil, store.NewStorageError("failed to decode entity descriptions", err)
		}
		out = append(out, models.EntityDescriptions{Name: name, Descriptions: descriptions})
	}
	return out, nil
}

func (gs *GraphStore) PutEntitySummaries(
	ctx context.Context,
	database string,
	summaries []models.EntitySummary,
) error {
	if len(summaries) == 0 {
		return nil
	}

	data := make([]map[string]any, len(summaries))
	for i, s := range summaries {
		data[i] = map[string]any{"name": s.Name, "summary": s.Summary}
	}

	if _, err := gs.write(ctx, database, putEntitySummariesQuery, map[string]any{"data": data}); err != nil {
		return store.NewStorageError("failed to write entity summaries", err)
	}
	return nil
}

func (gs *GraphStore) CopySingleEntityDescriptions(ctx context.Context, database string) (int, error) {
	result, err := gs.write(ctx, database, copySingleEntityDescriptionsQuery, nil)
	if err != nil {
		return 0, store.NewStorageError("failed to copy entity descriptions", err)
	}
	count, err := firstInt(result, "count")
	if err != nil {
		return 0, store.NewStorageError("failed to copy entity descriptions", err)
	}
	return count, nil
}

func (gs *GraphStore) RelationshipDescriptions(
	ctx context.Context,
	database string,
) ([]models.RelationshipDescriptions, error) {
	result, err := gs.read(ctx, database, relationshipDescriptionsQuery, nil)
	if err != nil {
		return nil, store.NewStorageError("failed to read relationship descriptions", err)
	}

	out := make([]models.RelationshipDescriptions, 0, len(result.Records))
	for _, r := range result.Records {
		rel, err := decodeRelationshipDescriptions(r)
		if err != nil {
			return nil, store.NewStorageError("failed to decode relationship descriptions", err)
		}
		out = append(out, rel)
	}
	return out, nil
}

func decodeRelationshipDescriptions(r *n4j.Record) (models.RelationshipDescriptions, error) {
	source, err := recordString(r, "source")
	if err != nil {
		return models.RelationshipDescriptions{}, err
	}
	target, err := recordString(r, "target")
	if err != nil {
		return models.RelationshipDescriptions{}, err
	}
	descriptions, err := recordStrings(r, "descriptions")
	if err != nil {
		return models.RelationshipDescriptions{}, err
	}
	return models.RelationshipDescriptions{
		Source:       source,
		Target:       target,
		Descriptions: descriptions,
	}, nil
}

func (gs *GraphStore) PutRelationshipSummaries(
	ctx context.Context,
	database string,
	summaries []models.RelationshipSummary,
) error {
	if len(summaries) == 0 {
		return nil
	}

	data := make([]map[string]any, len(summaries))
	for i, s := range summaries {
		data[i] = map[string]any{
			"source":  s.Source,
			"target":  s.Target,
			"summary": s.Summary,
			"weight":  s.Weight,
		}
	}

	if _, err := gs.write(ctx, database, putRelationshipSummariesQuery, map[string]any{"data": data}); err != nil {
		return store.NewStorageError("failed to write relationship summaries", err)
	}
	return nil
}

func (gs *GraphStore) CopySingleRelationshipDescriptions(ctx context.Context, database string) (int, error) {
	result, err := gs.write(ctx, database, copySingleRelationshipDescriptionsQuery, nil)
	if err != nil {
		return 0, store.NewStorageError("failed to copy relationship descriptions", err)
	}
	count, err := firstInt(result, "count")
	if err != nil {
		return 0, store.NewStorageError("failed to copy relationship descriptions", err)
	}
	return count, nil
}

// DetectCommunities runs hierarchical Leiden over the summarized entity graph
// and rebuilds the __Community__ hierarchy. The GDS projection is always
// dropped before returning.
func (gs *GraphStore) DetectCommunities(ctx context.Context, database string) (*models.CommunityStats, error) {
	result, err := gs.read(ctx, database, countEntitiesQuery, nil)
	if err != nil {
		return nil, store.NewStorageError("failed to count entities", err)
	}
	entities, err := firstInt(result, "count")
	if err != nil {
		return nil, store.NewStorageError("failed to count entities", err)
	}
	if entities == 0 {
		log.Warn("no entities found, skipping community detection")
		return &models.CommunityStats{}, nil
	}

	params := map[string]any{"name": communityProjection}

	if err := gs.dropProjection(ctx, database); err != nil {
		return nil, err
	}

	if _, err := gs.write(ctx, database, projectQuery, params); err != nil {
		return nil, store.NewStorageError("failed to project entity graph", err)
	}
	defer func() {
		// ctx may already be cancelled
		if err := gs.dropProjection(context.WithoutCancel(ctx), database); err != nil {
			log.Errorf("failed to drop community projection: %v", err)
		}
	}()

	result, err = gs.write(ctx, database, leidenQuery, params)
	if err != nil {
		return nil, store.NewStorageError("failed to run leiden", err)
	}
	modularity, err := firstFloat(result, "modularity")
	if err != nil {
		return nil, store.NewStorageError("failed to read leiden modularity", err)
	}

	if _, err := gs.write(ctx, database, deleteCommunitiesQuery, nil); err != nil {
		return nil, store.NewStorageError("failed to delete previous communities", err)
	}
	if _, err := gs.write(ctx, database, buildCommunitiesQuery, nil); err != nil {
		return nil, store.NewStorageError("failed to build communities", err)
	}
	if _, err := gs.write(ctx, database, communityWeightQuery, nil); err != nil {
		return nil, store.NewStorageError("failed to weight communities", err)
	}

	result, err = gs.read(ctx, database, communityCountQuery, nil)
	if err != nil {
		return nil, store.NewStorageError("failed to count communities", err)
	}

	communities, err := firstInt(result, "count")
	if err != nil {
		return nil, store.NewStorageError("failed to count communities", err)
	}
	maxLevel, err := firstInt(result, "maxLevel")
	if err != nil {
		return nil, store.NewStorageError("failed to count communities", err)
	}

	stats := &models.CommunityStats{
		Communities: communities,
		Modularity:  modularity,
	}
	if communities > 0 {
		stats.Levels = maxLevel + 1
	}

	return stats, nil
}

func (gs *GraphStore) dropProjection(ctx context.Context, database string) error {
	_, err := gs.write(ctx, database, dropProjectionQuery, map[string]any{"name": communityProjection})
	if err != nil {
		return store.NewStorageError("failed to drop community projection", err)
	}
	return nil
}

func (gs *GraphStore) CommunityLevels(ctx context.Context, database string) ([]int, error) {
	result, err := gs.read(ctx, database, communityLevelsQuery, nil)
	if err != nil {
		return nil, store.NewStorageError("failed to read community levels", err)
	}

	levels := make([]int, 0, len(result.Records))
	for _, r := range result.Records {
		level, err := recordInt(r, "level")
		if err != nil {
			return nil, store.NewStorageError("failed to decode community levels", err)
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func (gs *GraphStore) CommunityInfo(
	ctx context.Context,
	database string,
	levels []int,
) ([]models.CommunityInfo, error) {
	result, err := gs.read(ctx, database, communityInfoQuery, map[string]any{"levels": levels})
	if err != nil {
		return nil, store.NewStorageError("failed to read community info", err)
	}

	out := make([]models.CommunityInfo, 0, len(result.Records))
	for _, r := range result.Records {
		info, err := decodeCommunityInfo(r)
		if err != nil {
			return nil, store.NewStorageError("failed to decode community info", err)
		}
		out = append(out, info)
	}
	return out, nil
}

func decodeCommunityInfo(r *n4j.Record) (models.CommunityInfo, error) {
	var info models.CommunityInfo
	var err error

	if info.ID, err = recordString(r, "communityId"); err != nil {
		return info, err
	}
	if info.Level, err = recordInt(r, "level"); err != nil {
		return info, err
	}

	nodes, err := recordMaps(r, "nodes")
	if err != nil {
		return info, err
	}
	for _, m := range nodes {
		var n models.CommunityNode
		if n.Name, err = mapString(m, "id"); err != nil {
			return info, err
		}
		if n.Type, err = mapString(m, "type"); err != nil {
			return info, err
		}
		if n.Summary, err = mapString(m, "description"); err != nil {
			return info, err
		}
		info.Nodes = append(info.Nodes, n)
	}

	rels, err := recordMaps(r, "rels")
	if err != nil {
		return info, err
	}
	for _, m := range rels {
		var rel models.CommunityRelationship
		if rel.Source, err = mapString(m, "source"); err != nil {
			return info, err
		}
		if rel.Target, err = mapString(m, "target"); err != nil {
			return info, err
		}
		if rel.Summary, err = mapString(m, "description"); err != nil {
			return info, err
		}
		info.Relationships = append(info.Relationships, rel)
	}

	return info, nil
}

func (gs *GraphStore) PutCommunityReports(
	ctx context.Context,
	database string,
	reports []models.CommunityReport,
) error {
	if len(reports) == 0 {
		return nil
	}

	data, err := communityReportParams(reports)
	if err != nil {
		return err
	}

	if _, err := gs.write(ctx, database, putCommunityReportsQuery, map[string]any{"data": data}); err != nil {
		return store.NewStorageError("failed to write community reports", err)
	}
	return nil
}

func communityReportParams(reports []models.CommunityReport) ([]map[string]any, error) {
	data := make([]map[string]any, len(reports))
	for i, r := range reports {
		full, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode community report %s: %w", r.CommunityID, err)
		}
		findings := r.Findings
		if findings == nil {
			findings = []models.CommunityFinding{}
		}
		findingsJSON, err := json.Marshal(findings)
		if err != nil {
			return nil, fmt.Errorf("failed to encode findings for %s: %w", r.CommunityID, err)
		}
		data[i] = map[string]any{
			"community_id":       r.CommunityID,
			"title":              r.Title,
			"summary":            r.Summary,
			"rating":             r.Rating,
			"rating_explanation": r.RatingExplanation,
			"findings":           string(findingsJSON),
			"full_content":       string(full),
		}
	}
	return data, nil
}

// Close closes the driver. It is safe to call more than once.
func (gs *GraphStore) Close(ctx context.Context) error {
	if gs.Client == nil {
		return nil
	}
	err := gs.Client.Close(ctx)
	gs.Client = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return store.NewStorageError("failed to close neo4j driver", err)
	}
	return nil
}
