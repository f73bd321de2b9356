// Package pipeline contains the ingestion and retrieval pipelines that turn
// free-text episodes into graph nodes/edges and answer ranked queries over
// them. External collaborators (graph store, LLM extractor, embedding
// provider) are consumed through the narrow interfaces defined here.
package pipeline

import (
	"context"

	"graphmind/internal/graph"
)

// CandidateEntity is a loosely-typed entity record returned by the extractor
type CandidateEntity struct {
	Name        string                 `json:"name"`
	Type        string                 `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

// CandidateRelationship is a loosely-typed relationship record returned by
// the extractor. Source and target reference candidate entities by name.
type CandidateRelationship struct {
	SourceEntity string                 `json:"source_entity"`
	TargetEntity string                 `json:"target_entity"`
	Type         string                 `json:"relationship_type,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Confidence   float64                `json:"confidence,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty"`
}

// Extractor turns text into structured candidates via a language model.
// Present-but-malformed model output degrades to empty results; a transport
// failure is returned as an error.
type Extractor interface {
	ExtractEntities(ctx context.Context, content string) ([]CandidateEntity, error)
	ExtractRelationships(ctx context.Context, content string, entities []CandidateEntity) ([]CandidateRelationship, error)
	GenerateSummary(ctx context.Context, content string, maxChars int) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Embedder turns text into a fixed-length vector for similarity search
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the durable owner of nodes and edges
type Store interface {
	CreateNodes(ctx context.Context, nodes []graph.Node) error
	CreateEdges(ctx context.Context, edges []graph.Edge) error
	SearchNodesByName(ctx context.Context, query string, limit int) ([]graph.SearchResult, error)
	SearchNodesByVector(ctx context.Context, embedding []float32, limit int) ([]graph.SearchResult, error)
	FindEntities(ctx context.Context, name, entityType string, limit int) ([]graph.Node, error)
	FindFacts(ctx context.Context, sourceName, targetName, factType string, limit int) ([]graph.Fact, error)
	Ping(ctx context.Context) error
}
