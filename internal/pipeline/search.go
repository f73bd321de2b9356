package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"graphmind/internal/graph"
	"graphmind/pkg/errors"
	"graphmind/pkg/logger"
)

// Search modes
const (
	SearchModeKeyword  = "keyword"
	SearchModeSemantic = "semantic"
	SearchModeHybrid   = "hybrid"
)

// Hybrid merge weights
const (
	semanticWeight = 1.2
	keywordWeight  = 0.8
)

// Limit bounds enforced before any external call
const (
	MinSearchLimit = 1
	MaxSearchLimit = 100
)

// Searcher answers text queries with ranked nodes
type Searcher struct {
	embedder Embedder
	store    Store
	logger   *zap.Logger
}

// NewSearcher creates a retrieval pipeline
func NewSearcher(embedder Embedder, store Store) *Searcher {
	return &Searcher{
		embedder: embedder,
		store:    store,
		logger:   logger.Get(),
	}
}

// Search runs the requested retrieval mode. Arguments are validated before
// any external call. Retrieval failures inside a mode degrade (semantic
// falls back to keyword; a dead sub-search contributes nothing) rather than
// surfacing to the caller; only argument errors are returned.
func (s *Searcher) Search(ctx context.Context, query string, limit int, mode string) ([]graph.SearchResult, error) {
	if limit < MinSearchLimit || limit > MaxSearchLimit {
		return nil, errors.NewInvalidArgument("num_results", fmt.Sprintf("must be between %d and %d, got %d", MinSearchLimit, MaxSearchLimit, limit))
	}

	switch mode {
	case SearchModeKeyword:
		return s.keywordSearch(ctx, query, limit), nil
	case SearchModeSemantic:
		results, err := s.semanticSearch(ctx, query, limit)
		if err != nil {
			s.logger.Warn("Semantic search degraded to keyword",
				zap.String("query", query),
				zap.Error(err),
			)
			return s.keywordSearch(ctx, query, limit), nil
		}
		return results, nil
	case SearchModeHybrid:
		return s.hybridSearch(ctx, query, limit), nil
	default:
		return nil, errors.NewInvalidArgument("search_type", fmt.Sprintf("unsupported mode %q", mode))
	}
}

// keywordSearch is the baseline: case-insensitive substring containment on
// node names. A store failure is logged and yields an empty result set.
func (s *Searcher) keywordSearch(ctx context.Context, query string, limit int) []graph.SearchResult {
	results, err := s.store.SearchNodesByName(ctx, query, limit)
	if err != nil {
		s.logger.Error("Keyword search failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}
	return results
}

func (s *Searcher) semanticSearch(ctx context.Context, query string, limit int) ([]graph.SearchResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}
	results, err := s.store.SearchNodesByVector(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector lookup failed: %w", err)
	}
	return results, nil
}

// hybridSearch runs semantic and keyword retrieval independently and merges
// them by result identity: semantic scores scale by 1.2, keyword scores by
// 0.8 and add onto an existing entry for the same id. Ties keep first-seen
// order (semantic results are enumerated before keyword results).
func (s *Searcher) hybridSearch(ctx context.Context, query string, limit int) []graph.SearchResult {
	semantic, err := s.semanticSearch(ctx, query, limit)
	if err != nil {
		s.logger.Warn("Hybrid search running without semantic results",
			zap.String("query", query),
			zap.Error(err),
		)
		semantic = nil
	}
	keyword := s.keywordSearch(ctx, query, limit)

	merged := make([]graph.SearchResult, 0, len(semantic)+len(keyword))
	index := make(map[string]int, len(semantic)+len(keyword))

	for _, result := range semantic {
		result.Score *= semanticWeight
		index[result.ID] = len(merged)
		merged = append(merged, result)
	}
	for _, result := range keyword {
		if i, ok := index[result.ID]; ok {
			merged[i].Score += result.Score * keywordWeight
			continue
		}
		result.Score *= keywordWeight
		index[result.ID] = len(merged)
		merged = append(merged, result)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// FindEntities returns entities matching the name substring and optional
// exact type. Capped at MaxSearchLimit rows to keep the scan bounded.
func (s *Searcher) FindEntities(ctx context.Context, name, entityType string) ([]graph.Node, error) {
	nodes, err := s.store.FindEntities(ctx, name, entityType, MaxSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("entity lookup failed: %w", err)
	}
	return nodes, nil
}

// FindFacts returns edges matching the optional filters, with endpoint
// snapshots. Capped at MaxSearchLimit rows; with no filters this is a
// bounded scan of all edges.
func (s *Searcher) FindFacts(ctx context.Context, sourceName, targetName, factType string) ([]graph.Fact, error) {
	facts, err := s.store.FindFacts(ctx, sourceName, targetName, factType, MaxSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("fact lookup failed: %w", err)
	}
	return facts, nil
}
