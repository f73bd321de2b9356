package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Node Operations
// ============================================================================

// CreateNodes persists a batch of entity nodes in a single write
func (r *Repository) CreateNodes(ctx context.Context, nodes []Node) error {
	if len(nodes) == 0 {
		return nil
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	params := make([]map[string]interface{}, 0, len(nodes))
	for _, node := range nodes {
		params = append(params, nodeToParam(node))
	}

	query := `
		UNWIND $nodes AS node
		CREATE (n:Entity {id: node.id})
		SET n.name = node.name,
		    n.type = node.type,
		    n.summary = node.summary,
		    n.created_at = datetime(node.created_at),
		    n.valid_from = datetime(node.valid_from),
		    n += node.attributes
		WITH n, node
		SET n.embedding = CASE WHEN size(node.embedding) > 0 THEN node.embedding ELSE null END
		RETURN count(n) as created
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"nodes": params,
	})
	if err != nil {
		return fmt.Errorf("failed to create nodes: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify node creation: %w", err)
	}

	created := getInt64FromRecord(record, "created")
	r.logger.Info("Nodes created",
		zap.Int64("count", created),
	)
	return nil
}

// SearchNodesByName performs a case-insensitive substring match against
// entity names. Every hit carries the default relevance score of 1.0.
func (r *Repository) SearchNodesByName(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	cypher := `
		MATCH (n:Entity)
		WHERE toLower(n.name) CONTAINS toLower($query)
		RETURN n.id as id, n.name as name, n.type as type, n.summary as summary
		LIMIT $limit
	`

	result, err := session.Run(ctx, cypher, map[string]interface{}{
		"query": query,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search nodes by name: %w", err)
	}

	var results []SearchResult
	for result.Next(ctx) {
		record := result.Record()
		results = append(results, SearchResult{
			Kind:    "node",
			ID:      getStringFromRecord(record, "id"),
			Name:    getStringFromRecord(record, "name"),
			Type:    getStringFromRecord(record, "type"),
			Score:   1.0,
			Summary: getStringFromRecord(record, "summary"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return results, nil
}

// SearchNodesByVector returns the nearest entities to the query embedding,
// ranked by cosine similarity via the entity_embedding vector index.
func (r *Repository) SearchNodesByVector(ctx context.Context, embedding []float32, limit int) ([]SearchResult, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	cypher := `
		CALL db.index.vector.queryNodes('entity_embedding', $limit, $embedding)
		YIELD node, score
		RETURN node.id as id, node.name as name, node.type as type,
		       node.summary as summary, score
	`

	result, err := session.Run(ctx, cypher, map[string]interface{}{
		"limit":     limit,
		"embedding": embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search nodes by vector: %w", err)
	}

	var results []SearchResult
	for result.Next(ctx) {
		record := result.Record()
		results = append(results, SearchResult{
			Kind:    "node",
			ID:      getStringFromRecord(record, "id"),
			Name:    getStringFromRecord(record, "name"),
			Type:    getStringFromRecord(record, "type"),
			Score:   getFloat64FromRecord(record, "score"),
			Summary: getStringFromRecord(record, "summary"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector search results: %w", err)
	}

	return results, nil
}

// FindEntities returns entities whose name contains the given substring
// (case-insensitive), optionally restricted to an exact type match.
func (r *Repository) FindEntities(ctx context.Context, name, entityType string, limit int) ([]Node, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	cypher := `
		MATCH (n:Entity)
		WHERE toLower(n.name) CONTAINS toLower($name)
		  AND ($type = '' OR n.type = $type)
		RETURN properties(n) as props
		ORDER BY n.name
		LIMIT $limit
	`

	result, err := session.Run(ctx, cypher, map[string]interface{}{
		"name":  name,
		"type":  entityType,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find entities: %w", err)
	}

	var nodes []Node
	for result.Next(ctx) {
		record := result.Record()
		if props := getMapFromRecord(record, "props"); props != nil {
			nodes = append(nodes, nodeFromProps(props))
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}

	return nodes, nil
}

// nodeToParam flattens a Node into the map shape the UNWIND write expects.
// Timestamps travel as RFC 3339 strings for Neo4j datetime() compatibility.
func nodeToParam(node Node) map[string]interface{} {
	attrs := make(map[string]interface{}, len(node.Attributes))
	for k, v := range node.Attributes {
		attrs[k] = propertyValue(v)
	}
	embedding := node.Embedding
	if embedding == nil {
		embedding = []float32{}
	}
	return map[string]interface{}{
		"id":         node.ID,
		"name":       node.Name,
		"type":       node.Type,
		"summary":    node.Summary,
		"created_at": node.CreatedAt.UTC().Format(time.RFC3339),
		"valid_from": node.ValidFrom.UTC().Format(time.RFC3339),
		"attributes": attrs,
		"embedding":  embedding,
	}
}

// nodeFromProps rebuilds a Node from its raw property map. Well-known keys
// map to struct fields; everything else lands in Attributes.
func nodeFromProps(props map[string]interface{}) Node {
	node := Node{
		ID:        getStringFromMap(props, "id", ""),
		Name:      getStringFromMap(props, "name", ""),
		Type:      getStringFromMap(props, "type", ""),
		Summary:   getStringFromMap(props, "summary", ""),
		CreatedAt: getTimeFromMap(props, "created_at"),
		ValidFrom: getTimeFromMap(props, "valid_from"),
	}

	known := map[string]bool{
		"id": true, "name": true, "type": true, "summary": true,
		"created_at": true, "valid_from": true, "valid_to": true,
		"embedding": true,
	}
	for k, v := range props {
		if known[k] {
			continue
		}
		if node.Attributes == nil {
			node.Attributes = make(map[string]interface{})
		}
		node.Attributes[k] = v
	}

	return node
}

// propertyValue coerces a value into something Neo4j accepts as a property.
// Nested maps and structs are not valid property values, so they are
// stringified rather than rejected.
func propertyValue(v interface{}) interface{} {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32,
		float32, float64,
		[]string, []int64, []float64, []bool:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getStringFromMap(m map[string]interface{}, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getTimeFromMap(m map[string]interface{}, key string) time.Time {
	val, ok := m[key]
	if !ok || val == nil {
		return time.Time{}
	}
	if t, ok := val.(time.Time); ok {
		return t
	}
	return time.Time{}
}
