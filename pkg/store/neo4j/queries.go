package neo4j

// communityProjection is the name of the GDS in-memory graph used for
// community detection. It only lives for the duration of DetectCommunities.
const communityProjection = "graphrag-communities"

var constraintQueries = []string{
	"CREATE CONSTRAINT chunk_id IF NOT EXISTS FOR (c:__Chunk__) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT entity_name IF NOT EXISTS FOR (e:__Entity__) REQUIRE e.name IS UNIQUE",
	"CREATE CONSTRAINT community_id IF NOT EXISTS FOR (c:__Community__) REQUIRE c.id IS UNIQUE",
}

const apocVersionQuery = "RETURN apoc.version() AS version"

const gdsVersionQuery = "RETURN gds.version() AS version"

// importQuery merges chunks, entities and relationships. Descriptions and
// strengths accumulate as lists so later imports never overwrite earlier ones.
const importQuery = `
UNWIND $data AS row
MERGE (c:__Chunk__ {id: row.chunk_id})
SET c.text = row.chunk_text
WITH c, row
CALL {
  WITH c, row
  UNWIND row.entities AS entity
  MERGE (e:__Entity__ {name: entity.entity_name})
  SET e.description = coalesce(e.description, []) + [entity.entity_description]
  WITH c, e, entity
  CALL apoc.create.addLabels(e, [entity.entity_type]) YIELD node
  MERGE (c)-[:HAS_ENTITY]->(e)
  RETURN count(*) AS entities
}
CALL {
  WITH c, row
  UNWIND row.relationships AS rel
  MERGE (s:__Entity__ {name: rel.source_entity})
  MERGE (t:__Entity__ {name: rel.target_entity})
  MERGE (s)-[r:RELATIONSHIP]->(t)
  SET r.description = coalesce(r.description, []) + [rel.relationship_description],
      r.strength = coalesce(r.strength, []) + [rel.relationship_strength]
  RETURN count(*) AS relationships
}
RETURN sum(entities) AS entities, sum(relationships) AS relationships
`

const entityDescriptionsQuery = `
MATCH (e:__Entity__)
WHERE size(e.description) > 1
RETURN e.name AS name, e.description AS descriptions
`

const putEntitySummariesQuery = `
UNWIND $data AS row
MATCH (e:__Entity__ {name: row.name})
SET e.summary = row.summary
`

const copySingleEntityDescriptionsQuery = `
MATCH (e:__Entity__)
WHERE size(e.description) = 1
SET e.summary = e.description[0]
RETURN count(e) AS count
`

// relationshipDescriptionsQuery groups RELATIONSHIP edges by unordered
// entity pair. Each edge holds every description imported for its direction.
const relationshipDescriptionsQuery = `
MATCH (s:__Entity__)-[r:RELATIONSHIP]-(t:__Entity__)
WHERE elementId(s) < elementId(t)
WITH s, t, collect(r) AS rels
WITH s, t, reduce(d = [], r IN rels | d + r.description) AS descriptions
WHERE size(descriptions) > 1
RETURN s.name AS source, t.name AS target, descriptions
`

const putRelationshipSummariesQuery = `
UNWIND $data AS row
MATCH (s:__Entity__ {name: row.source}), (t:__Entity__ {name: row.target})
MERGE (s)-[r:SUMMARIZED_RELATIONSHIP]-(t)
SET r.summary = row.summary, r.weight = row.weight
`

const copySingleRelationshipDescriptionsQuery = `
MATCH (s:__Entity__)-[r:RELATIONSHIP]-(t:__Entity__)
WHERE elementId(s) < elementId(t)
WITH s, t, collect(r) AS rels
WITH s, t, reduce(d = [], r IN rels | d + r.description) AS descriptions
WHERE size(descriptions) = 1
MERGE (s)-[sr:SUMMARIZED_RELATIONSHIP]-(t)
SET sr.summary = descriptions[0], sr.weight = size(descriptions)
RETURN count(sr) AS count
`

const countEntitiesQuery = "MATCH (e:__Entity__) RETURN count(e) AS count"

const dropProjectionQuery = `
CALL gds.graph.drop($name, false) YIELD graphName
RETURN graphName
`

const projectQuery = `
CALL gds.graph.project(
  $name,
  '__Entity__',
  {SUMMARIZED_RELATIONSHIP: {orientation: 'UNDIRECTED', properties: {weight: {defaultValue: 1.0}}}}
)
YIELD graphName, nodeCount, relationshipCount
RETURN graphName, nodeCount, relationshipCount
`

const leidenQuery = `
CALL gds.leiden.write($name, {
  writeProperty: 'communities',
  includeIntermediateCommunities: true,
  relationshipWeightProperty: 'weight'
})
YIELD communityCount, ranLevels, modularity
RETURN communityCount, ranLevels, modularity
`

const deleteCommunitiesQuery = "MATCH (c:__Community__) DETACH DELETE c"

// buildCommunitiesQuery turns the community id list written by Leiden into
// a __Community__ hierarchy. Level 0 communities hold entities, higher
// levels hold the communities below them.
const buildCommunitiesQuery = `
MATCH (e:__Entity__)
WHERE e.communities IS NOT NULL
UNWIND range(0, size(e.communities) - 1) AS index
CALL {
  WITH e, index
  WITH e, index
  WHERE index = 0
  MERGE (c:__Community__ {id: toString(index) + '-' + toString(e.communities[index])})
  ON CREATE SET c.level = index
  MERGE (e)-[:IN_COMMUNITY]->(c)
  RETURN count(*) AS entities
}
CALL {
  WITH e, index
  WITH e, index
  WHERE index > 0
  MERGE (current:__Community__ {id: toString(index) + '-' + toString(e.communities[index])})
  ON CREATE SET current.level = index
  MERGE (previous:__Community__ {id: toString(index - 1) + '-' + toString(e.communities[index - 1])})
  ON CREATE SET previous.level = index - 1
  MERGE (previous)-[:IN_COMMUNITY]->(current)
  RETURN count(*) AS communities
}
RETURN count(*) AS count
`

// communityWeightQuery sets each community's weight to the number of
// distinct chunks mentioning its members.
const communityWeightQuery = `
MATCH (c:__Community__)<-[:IN_COMMUNITY*]-(:__Entity__)<-[:HAS_ENTITY]-(ch:__Chunk__)
WITH c, count(DISTINCT ch) AS chunks
SET c.weight = chunks
`

const communityCountQuery = "MATCH (c:__Community__) RETURN count(c) AS count, max(c.level) AS maxLevel"

const communityLevelsQuery = `
MATCH (c:__Community__)
RETURN DISTINCT c.level AS level
ORDER BY level
`

// communityInfoQuery collects the member entities of each community and the
// summarized relationships between them.
const communityInfoQuery = `
MATCH (c:__Community__)
WHERE c.level IN $levels
MATCH (c)<-[:IN_COMMUNITY*]-(e:__Entity__)
WITH c, collect(DISTINCT e) AS nodes
WHERE size(nodes) > 1
CALL apoc.path.subgraphAll(nodes[0], {
  whitelistNodes: nodes,
  relationshipFilter: 'SUMMARIZED_RELATIONSHIP'
})
YIELD relationships
RETURN c.id AS communityId,
       c.level AS level,
       [n IN nodes | {
         id: n.name,
         description: coalesce(n.summary, ''),
         type: coalesce([el IN labels(n) WHERE el <> '__Entity__'][0], '')
       }] AS nodes,
       [r IN relationships | {
         source: startNode(r).name,
         target: endNode(r).name,
         description: coalesce(r.summary, '')
       }] AS rels
ORDER BY level, communityId
`

const putCommunityReportsQuery = `
UNWIND $data AS row
MATCH (c:__Community__ {id: row.community_id})
SET c.title = row.title,
    c.summary = row.summary,
    c.rating = row.rating,
    c.rating_explanation = row.rating_explanation,
    c.findings = row.findings,
    c.full_content = row.full_content
`
