package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Edge Operations
// ============================================================================

// CreateEdges persists a batch of relationship edges in a single write.
// Both endpoints of every edge must already exist: the MATCH clauses drop
// rows with dangling references, and the write fails when the created count
// falls short of the batch size.
func (r *Repository) CreateEdges(ctx context.Context, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	params := make([]map[string]interface{}, 0, len(edges))
	for _, edge := range edges {
		params = append(params, edgeToParam(edge))
	}

	query := `
		UNWIND $edges AS edge
		MATCH (s:Entity {id: edge.source_id})
		MATCH (t:Entity {id: edge.target_id})
		CREATE (s)-[r:RELATES {id: edge.id}]->(t)
		SET r.type = edge.type,
		    r.name = edge.name,
		    r.summary = edge.summary,
		    r.created_at = datetime(edge.created_at),
		    r.valid_from = datetime(edge.valid_from),
		    r += edge.attributes
		RETURN count(r) as created
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"edges": params,
	})
	if err != nil {
		return fmt.Errorf("failed to create edges: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify edge creation: %w", err)
	}

	created := getInt64FromRecord(record, "created")
	if created != int64(len(edges)) {
		return fmt.Errorf("edge batch references missing nodes: created %d of %d edges", created, len(edges))
	}

	r.logger.Info("Edges created",
		zap.Int64("count", created),
	)
	return nil
}

// FindFacts returns edges matching the given filters, each with snapshots of
// its endpoint nodes. Name filters are case-insensitive substring matches;
// the type filter is an exact match. All filters are optional; an unfiltered
// call scans every edge up to the limit.
func (r *Repository) FindFacts(ctx context.Context, sourceName, targetName, factType string, limit int) ([]Fact, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	cypher := `
		MATCH (s:Entity)-[r:RELATES]->(t:Entity)
		WHERE ($source = '' OR toLower(s.name) CONTAINS toLower($source))
		  AND ($target = '' OR toLower(t.name) CONTAINS toLower($target))
		  AND ($factType = '' OR r.type = $factType)
		RETURN properties(r) as edge_props,
		       properties(s) as source_props,
		       properties(t) as target_props
		ORDER BY r.created_at DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, cypher, map[string]interface{}{
		"source":   sourceName,
		"target":   targetName,
		"factType": factType,
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find facts: %w", err)
	}

	var facts []Fact
	for result.Next(ctx) {
		record := result.Record()
		edgeProps := getMapFromRecord(record, "edge_props")
		sourceProps := getMapFromRecord(record, "source_props")
		targetProps := getMapFromRecord(record, "target_props")
		if edgeProps == nil || sourceProps == nil || targetProps == nil {
			continue
		}

		source := nodeFromProps(sourceProps)
		target := nodeFromProps(targetProps)
		edge := edgeFromProps(edgeProps, source.ID, target.ID)
		facts = append(facts, Fact{
			Edge:   edge,
			Source: source,
			Target: target,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read facts: %w", err)
	}

	return facts, nil
}

func edgeToParam(edge Edge) map[string]interface{} {
	attrs := make(map[string]interface{}, len(edge.Attributes))
	for k, v := range edge.Attributes {
		attrs[k] = propertyValue(v)
	}
	return map[string]interface{}{
		"id":         edge.ID,
		"type":       edge.Type,
		"source_id":  edge.SourceID,
		"target_id":  edge.TargetID,
		"name":       edge.Name,
		"summary":    edge.Summary,
		"created_at": edge.CreatedAt.UTC().Format(time.RFC3339),
		"valid_from": edge.ValidFrom.UTC().Format(time.RFC3339),
		"attributes": attrs,
	}
}

func edgeFromProps(props map[string]interface{}, sourceID, targetID string) Edge {
	edge := Edge{
		ID:        getStringFromMap(props, "id", ""),
		Type:      getStringFromMap(props, "type", ""),
		SourceID:  sourceID,
		TargetID:  targetID,
		Name:      getStringFromMap(props, "name", ""),
		Summary:   getStringFromMap(props, "summary", ""),
		CreatedAt: getTimeFromMap(props, "created_at"),
		ValidFrom: getTimeFromMap(props, "valid_from"),
	}

	known := map[string]bool{
		"id": true, "type": true, "name": true, "summary": true,
		"created_at": true, "valid_from": true,
	}
	for k, v := range props {
		if known[k] {
			continue
		}
		if edge.Attributes == nil {
			edge.Attributes = make(map[string]interface{})
		}
		edge.Attributes[k] = v
	}

	return edge
}
