package graph

import "time"

// ============================================================================
// Graph Types
// ============================================================================

// Node represents a persisted entity extracted from text
type Node struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Name       string                 `json:"name"`
	Summary    string                 `json:"summary,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	ValidFrom  time.Time              `json:"valid_from"`
	ValidTo    *time.Time             `json:"valid_to,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Embedding  []float32              `json:"-"`
}

// Edge represents a persisted directed relationship between two entities
type Edge struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	SourceID   string                 `json:"source_id"`
	TargetID   string                 `json:"target_id"`
	Name       string                 `json:"name"`
	Summary    string                 `json:"summary,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	ValidFrom  time.Time              `json:"valid_from"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Episode is one unit of input free text submitted for extraction.
// It is consumed by ingestion and never stored as a graph entity itself.
type Episode struct {
	Name              string     `json:"name"`
	Content           string     `json:"content"`
	SourceDescription string     `json:"source_description,omitempty"`
	Source            string     `json:"source,omitempty"`
	ReferenceTime     *time.Time `json:"reference_time,omitempty"`
}

// SearchResult represents one ranked hit; produced fresh per query
type SearchResult struct {
	Kind    string  `json:"kind"` // node, edge
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary,omitempty"`
}

// Fact is an edge together with snapshots of its endpoints
type Fact struct {
	Edge   Edge `json:"edge"`
	Source Node `json:"source"`
	Target Node `json:"target"`
}
