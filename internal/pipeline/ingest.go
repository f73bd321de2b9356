package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphmind/internal/graph"
	"graphmind/pkg/errors"
	"graphmind/pkg/logger"
)

const (
	// DefaultSummaryLimit bounds the generated episode synopsis
	DefaultSummaryLimit = 200

	defaultEntityType       = "entity"
	defaultRelationshipType = "related_to"
	defaultConfidence       = 0.8
)

// Ingestor converts episodes into persisted nodes and edges
type Ingestor struct {
	extractor    Extractor
	embedder     Embedder
	store        Store
	summaryLimit int
	logger       *zap.Logger
	now          func() time.Time
}

// NewIngestor creates an ingestion pipeline. A non-positive summaryLimit
// falls back to DefaultSummaryLimit.
func NewIngestor(extractor Extractor, embedder Embedder, store Store, summaryLimit int) *Ingestor {
	if summaryLimit <= 0 {
		summaryLimit = DefaultSummaryLimit
	}
	return &Ingestor{
		extractor:    extractor,
		embedder:     embedder,
		store:        store,
		summaryLimit: summaryLimit,
		logger:       logger.Get(),
		now:          time.Now,
	}
}

// IngestAll processes episodes one at a time in input order. A failure on
// one episode aborts the rest of the batch; the returned error names the
// episode that failed. Already-persisted episodes are not rolled back.
func (in *Ingestor) IngestAll(ctx context.Context, episodes []graph.Episode) (nodesCreated, edgesCreated int, err error) {
	for _, episode := range episodes {
		nodes, edges, err := in.Ingest(ctx, episode)
		if err != nil {
			return nodesCreated, edgesCreated, errors.NewEpisodeFailed(episode.Name, err)
		}
		nodesCreated += nodes
		edgesCreated += edges
	}
	return nodesCreated, edgesCreated, nil
}

// Ingest converts one episode into zero-or-more nodes and edges and persists
// them. Nodes and edges are each written as a single batch; there is no
// transaction spanning both writes, so a failed edge batch leaves the node
// batch committed.
func (in *Ingestor) Ingest(ctx context.Context, episode graph.Episode) (nodesCreated, edgesCreated int, err error) {
	entities, err := in.extractor.ExtractEntities(ctx, episode.Content)
	if err != nil {
		return 0, 0, fmt.Errorf("entity extraction failed: %w", err)
	}
	if len(entities) == 0 {
		in.logger.Info("No entities extracted from episode",
			zap.String("episode", episode.Name),
		)
		return 0, 0, nil
	}
	entities = deduplicateEntities(entities)

	relationships, err := in.extractor.ExtractRelationships(ctx, episode.Content, entities)
	if err != nil {
		return 0, 0, fmt.Errorf("relationship extraction failed: %w", err)
	}

	summary := in.summarize(ctx, episode)

	nodes, nameToID := in.materializeNodes(ctx, episode, entities, summary)
	edges := in.resolveEdges(episode, relationships, nameToID)

	if len(nodes) > 0 {
		if err := in.store.CreateNodes(ctx, nodes); err != nil {
			return 0, 0, errors.NewGraphWriteFailed("nodes", err)
		}
	}
	if len(edges) > 0 {
		if err := in.store.CreateEdges(ctx, edges); err != nil {
			return len(nodes), 0, errors.NewGraphWriteFailed("edges", err)
		}
	}

	in.logger.Info("Episode ingested",
		zap.String("episode", episode.Name),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return len(nodes), len(edges), nil
}

// summarize asks the extractor for a bounded synopsis of the episode.
// Truncation is only the fallback when generation fails.
func (in *Ingestor) summarize(ctx context.Context, episode graph.Episode) string {
	summary, err := in.extractor.GenerateSummary(ctx, episode.Content, in.summaryLimit)
	if err != nil || summary == "" {
		in.logger.Warn("Summary generation failed, truncating content",
			zap.String("episode", episode.Name),
			zap.Error(err),
		)
		summary = episode.Content
	}
	// Truncate on runes so a multibyte character is never split
	if runes := []rune(summary); len(runes) > in.summaryLimit {
		summary = string(runes[:in.summaryLimit])
	}
	return summary
}

// materializeNodes turns candidate entities into persisted-shape nodes and
// builds the per-episode name -> id lookup used for edge resolution. The
// lookup is scratch state: discarded once the episode is done.
func (in *Ingestor) materializeNodes(ctx context.Context, episode graph.Episode, entities []CandidateEntity, summary string) ([]graph.Node, map[string]string) {
	now := in.now().UTC()
	validFrom := now
	if episode.ReferenceTime != nil {
		validFrom = episode.ReferenceTime.UTC()
	}

	nodes := make([]graph.Node, 0, len(entities))
	nameToID := make(map[string]string, len(entities))
	for _, entity := range entities {
		entityType := entity.Type
		if entityType == "" {
			entityType = defaultEntityType
		}

		attrs := map[string]interface{}{
			"episode_name":    episode.Name,
			"episode_summary": summary,
		}
		if episode.SourceDescription != "" {
			attrs["source_description"] = episode.SourceDescription
		}
		if episode.Source != "" {
			attrs["source"] = episode.Source
		}
		for k, v := range entity.Attributes {
			attrs[k] = v
		}

		node := graph.Node{
			ID:         uuid.New().String(),
			Type:       entityType,
			Name:       entity.Name,
			Summary:    entity.Description,
			CreatedAt:  now,
			ValidFrom:  validFrom,
			Attributes: attrs,
			Embedding:  in.embed(ctx, entity),
		}
		nodes = append(nodes, node)
		nameToID[strings.ToLower(entity.Name)] = node.ID
	}

	return nodes, nameToID
}

// embed produces the node embedding used by semantic search. Best effort: a
// provider failure leaves the node without a vector rather than aborting the
// episode.
func (in *Ingestor) embed(ctx context.Context, entity CandidateEntity) []float32 {
	text := entity.Name
	if entity.Description != "" {
		text = entity.Name + ": " + entity.Description
	}
	embedding, err := in.embedder.Embed(ctx, text)
	if err != nil {
		in.logger.Warn("Entity embedding failed, node stored without vector",
			zap.String("entity", entity.Name),
			zap.Error(err),
		)
		return nil
	}
	return embedding
}

// resolveEdges matches relationship endpoints against the just-created node
// batch (case-insensitive exact name match) and drops edges whose endpoints
// cannot both be resolved or that would loop back on themselves.
func (in *Ingestor) resolveEdges(episode graph.Episode, relationships []CandidateRelationship, nameToID map[string]string) []graph.Edge {
	now := in.now().UTC()
	validFrom := now
	if episode.ReferenceTime != nil {
		validFrom = episode.ReferenceTime.UTC()
	}

	edges := make([]graph.Edge, 0, len(relationships))
	for _, rel := range relationships {
		sourceID := nameToID[strings.ToLower(rel.SourceEntity)]
		targetID := nameToID[strings.ToLower(rel.TargetEntity)]
		if sourceID == "" || targetID == "" {
			in.logger.Debug("Dropping edge with unresolved endpoint",
				zap.String("source", rel.SourceEntity),
				zap.String("target", rel.TargetEntity),
			)
			continue
		}
		if sourceID == targetID {
			in.logger.Debug("Dropping self-referencing edge",
				zap.String("entity", rel.SourceEntity),
			)
			continue
		}

		relType := rel.Type
		if relType == "" {
			relType = defaultRelationshipType
		}
		confidence := rel.Confidence
		if confidence <= 0 {
			confidence = defaultConfidence
		}

		attrs := map[string]interface{}{
			"episode_name": episode.Name,
			"confidence":   confidence,
		}
		for k, v := range rel.Attributes {
			attrs[k] = v
		}

		edges = append(edges, graph.Edge{
			ID:         uuid.New().String(),
			Type:       relType,
			SourceID:   sourceID,
			TargetID:   targetID,
			Name:       relType,
			Summary:    rel.Description,
			CreatedAt:  now,
			ValidFrom:  validFrom,
			Attributes: attrs,
		})
	}

	return edges
}
