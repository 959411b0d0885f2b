package models

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Document is one input text. It is stored as a __Chunk__ node.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// NewDocument derives the document ID from its text, so importing the same
// text twice merges into the same chunk.
func NewDocument(text string) Document {
	return Document{
		ID:   uuid.NewMD5(uuid.NameSpaceOID, []byte(text)).String(),
		Text: text,
	}
}

type Entity struct {
	Name        string `json:"entity_name"`
	Type        string `json:"entity_type"`
	Description string `json:"entity_description"`
}

type Relationship struct {
	Source      string  `json:"source_entity"`
	Target      string  `json:"target_entity"`
	Description string  `json:"relationship_description"`
	Strength    float64 `json:"relationship_strength"`
}

// ChunkExtraction holds everything extracted from a single document.
type ChunkExtraction struct {
	Document      Document       `json:"document"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

type EntityDescriptions struct {
	Name         string
	Descriptions []string
}

type EntitySummary struct {
	Name    string
	Summary string
}

// RelationshipDescriptions holds the descriptions of every RELATIONSHIP edge
// between an unordered pair of entities.
type RelationshipDescriptions struct {
	Source       string
	Target       string
	Descriptions []string
}

type RelationshipSummary struct {
	Source  string
	Target  string
	Summary string
	// Weight is the number of descriptions summarized.
	Weight int
}

type CommunityNode struct {
	Name    string `json:"id"`
	Type    string `json:"type"`
	Summary string `json:"description"`
}

type CommunityRelationship struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Summary string `json:"description"`
}

// CommunityInfo is the context handed to the LLM to write a community report.
type CommunityInfo struct {
	ID            string
	Level         int
	Nodes         []CommunityNode
	Relationships []CommunityRelationship
}

type CommunityFinding struct {
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
}

type CommunityReport struct {
	CommunityID       string             `json:"-"`
	Level             int                `json:"-"`
	Title             string             `json:"title"`
	Summary           string             `json:"summary"`
	Rating            float64            `json:"rating"`
	RatingExplanation string             `json:"rating_explanation"`
	Findings          []CommunityFinding `json:"findings"`
}

// CommunityStats describes the hierarchy written by community detection.
type CommunityStats struct {
	Communities int
	Levels      int
	Modularity  float64
}

// GraphStore persists extractions, summaries and communities. Every method
// takes the name of the database to run against.
type GraphStore interface {
	// CheckPlugins verifies APOC and GDS are installed.
	CheckPlugins(ctx context.Context) error
	EnsureConstraints(ctx context.Context, database string) error
	ImportExtractions(ctx context.Context, database string, extractions []ChunkExtraction) error

	// EntityDescriptions returns entities with more than one description.
	EntityDescriptions(ctx context.Context, database string) ([]EntityDescriptions, error)
	PutEntitySummaries(ctx context.Context, database string, summaries []EntitySummary) error
	// CopySingleEntityDescriptions uses the only description as the summary.
	CopySingleEntityDescriptions(ctx context.Context, database string) (int, error)

	// RelationshipDescriptions returns entity pairs with more than one description.
	RelationshipDescriptions(ctx context.Context, database string) ([]RelationshipDescriptions, error)
	PutRelationshipSummaries(ctx context.Context, database string, summaries []RelationshipSummary) error
	CopySingleRelationshipDescriptions(ctx context.Context, database string) (int, error)

	DetectCommunities(ctx context.Context, database string) (*CommunityStats, error)
	CommunityLevels(ctx context.Context, database string) ([]int, error)
	CommunityInfo(ctx context.Context, database string, levels []int) ([]CommunityInfo, error)
	PutCommunityReports(ctx context.Context, database string, reports []CommunityReport) error

	Close(ctx context.Context) error
}

type ExtractionResult struct {
	Documents     int
	Entities      int
	Relationships int
}

func (r *ExtractionResult) String() string {
	return fmt.Sprintf(
		"Successfully extracted and imported %s relationships",
		humanize.Comma(int64(r.Relationships)),
	)
}

type SummaryResult struct {
	Nodes         int
	Relationships int
}

func (r *SummaryResult) String() string {
	return "Successfully summarized nodes and relationships"
}

type CommunityResult struct {
	Communities int
	Levels      []int
}

func (r *CommunityResult) String() string {
	return fmt.Sprintf("Generated %s community summaries", humanize.Comma(int64(r.Communities)))
}
