package neo4j

import (
	"encoding/json"
	"testing"

	n4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getzep/graphrag/pkg/models"
)

func TestCheckGDSVersion(t *testing.T) {
	testCases := []struct {
		name       string
		version    string
		constraint string
		wantErr    bool
	}{
		{name: "satisfied", version: "2.6.8", constraint: ">= 2.5.0"},
		{name: "too old", version: "2.3.1", constraint: ">= 2.5.0", wantErr: true},
		{name: "no constraint", version: "garbage", constraint: ""},
		{name: "unparseable version", version: "not-a-version", constraint: ">= 2.5.0", wantErr: true},
		{name: "empty version", version: "", constraint: ">= 2.5.0", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkGDSVersion(tc.version, tc.constraint)
			if tc.wantErr {
				assert.ErrorIs(t, err, models.ErrMissingPlugin)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckGDSVersion_BadConstraint(t *testing.T) {
	err := checkGDSVersion("2.6.0", "not a constraint")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrMissingPlugin)
}

func TestExtractionParams(t *testing.T) {
	doc := models.NewDocument("Tomaz works for Neo4j")
	data := extractionParams([]models.ChunkExtraction{
		{
			Document: doc,
			Entities: []models.Entity{
				{Name: "TOMAZ", Type: "Person", Description: "Tomaz is a person"},
				{Name: "NEO4J", Type: "Organization", Description: "Neo4j is a company"},
			},
			Relationships: []models.Relationship{
				{Source: "TOMAZ", Target: "NEO4J", Description: "Tomaz works for Neo4j", Strength: 9},
			},
		},
	})

	require.Len(t, data, 1)
	assert.Equal(t, doc.ID, data[0]["chunk_id"])
	assert.Equal(t, "Tomaz works for Neo4j", data[0]["chunk_text"])

	entities := data[0]["entities"].([]map[string]any)
	require.Len(t, entities, 2)
	assert.Equal(t, "TOMAZ", entities[0]["entity_name"])
	assert.Equal(t, "Person", entities[0]["entity_type"])

	rels := data[0]["relationships"].([]map[string]any)
	require.Len(t, rels, 1)
	assert.Equal(t, "NEO4J", rels[0]["target_entity"])
	assert.Equal(t, 9.0, rels[0]["relationship_strength"])
}

func TestCommunityReportParams(t *testing.T) {
	data, err := communityReportParams([]models.CommunityReport{
		{
			CommunityID: "0-1",
			Title:       "Tomaz and Grosuplje",
			Summary:     "Tomaz lives in Grosuplje",
			Rating:      3.5,
			Findings: []models.CommunityFinding{
				{Summary: "Residence", Explanation: "Tomaz lives in Grosuplje"},
				{Summary: "School"},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, data, 1)

	assert.Equal(t, "0-1", data[0]["community_id"])
	assert.JSONEq(t,
		`[{"summary":"Residence","explanation":"Tomaz lives in Grosuplje"},{"summary":"School","explanation":""}]`,
		data[0]["findings"].(string),
	)

	var full map[string]any
	require.NoError(t, json.Unmarshal([]byte(data[0]["full_content"].(string)), &full))
	assert.Equal(t, "Tomaz and Grosuplje", full["title"])
	assert.NotContains(t, full, "CommunityID")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "MATCH (e:__Entity__)", firstLine("\n   MATCH (e:__Entity__)\n RETURN e"))
	assert.Empty(t, firstLine("  \n "))
}

func TestRecordHelpers(t *testing.T) {
	record := &n4j.Record{
		Keys: []string{"name", "descriptions", "weight", "modularity", "nodes", "missingLevel"},
		Values: []any{
			"TOMAZ",
			[]any{"first", "second", nil},
			int64(3),
			0.42,
			[]any{map[string]any{"id": "TOMAZ", "type": "Person", "description": nil}},
			nil,
		},
	}

	name, err := recordString(record, "name")
	require.NoError(t, err)
	assert.Equal(t, "TOMAZ", name)

	descriptions, err := recordStrings(record, "descriptions")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, descriptions)

	weight, err := recordInt(record, "weight")
	require.NoError(t, err)
	assert.Equal(t, 3, weight)

	level, err := recordInt(record, "missingLevel")
	require.NoError(t, err)
	assert.Zero(t, level)

	nodes, err := recordMaps(record, "nodes")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	summary, err := mapString(nodes[0], "description")
	require.NoError(t, err)
	assert.Empty(t, summary)

	result := &n4j.EagerResult{Records: []*n4j.Record{record}}
	modularity, err := firstFloat(result, "modularity")
	require.NoError(t, err)
	assert.Equal(t, 0.42, modularity)
}

func TestRecordHelpers_Errors(t *testing.T) {
	record := &n4j.Record{
		Keys:   []string{"name", "descriptions", "nodes"},
		Values: []any{int64(1), []any{"first", int64(2)}, []any{"not a map"}},
	}

	_, err := recordString(record, "missing")
	assert.Error(t, err)

	_, err = recordString(record, "name")
	assert.Error(t, err)

	_, err = recordStrings(record, "descriptions")
	assert.Error(t, err)

	_, err = recordMaps(record, "nodes")
	assert.Error(t, err)

	_, err = mapString(map[string]any{"id": int64(1)}, "id")
	assert.Error(t, err)

	_, err = firstInt(&n4j.EagerResult{}, "count")
	assert.ErrorIs(t, err, errNoRecords)
}

func TestDecodeCommunityInfo(t *testing.T) {
	record := &n4j.Record{
		Keys: []string{"communityId", "level", "nodes", "rels"},
		Values: []any{
			"0-1",
			int64(0),
			[]any{
				map[string]any{"id": "TOMAZ", "type": "Person", "description": "Tomaz works at Neo4j"},
				map[string]any{"id": "NEO4J", "type": "", "description": ""},
			},
			[]any{
				map[string]any{"source": "TOMAZ", "target": "NEO4J", "description": "Tomaz is employed by Neo4j"},
			},
		},
	}

	info, err := decodeCommunityInfo(record)
	require.NoError(t, err)
	assert.Equal(t, models.CommunityInfo{
		ID:    "0-1",
		Level: 0,
		Nodes: []models.CommunityNode{
			{Name: "TOMAZ", Type: "Person", Summary: "Tomaz works at Neo4j"},
			{Name: "NEO4J"},
		},
		Relationships: []models.CommunityRelationship{
			{Source: "TOMAZ", Target: "NEO4J", Summary: "Tomaz is employed by Neo4j"},
		},
	}, info)

	record.Values[1] = "zero"
	_, err = decodeCommunityInfo(record)
	assert.Error(t, err)
}

func TestDecodeRelationshipDescriptions(t *testing.T) {
	record := &n4j.Record{
		Keys:   []string{"source", "target", "descriptions"},
		Values: []any{"GROSUPLJE", "TOMAZ", []any{"Tomaz lives in Grosuplje", "Tomaz grew up in Grosuplje"}},
	}

	rel, err := decodeRelationshipDescriptions(record)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipDescriptions{
		Source:       "GROSUPLJE",
		Target:       "TOMAZ",
		Descriptions: []string{"Tomaz lives in Grosuplje", "Tomaz grew up in Grosuplje"},
	}, rel)
}
