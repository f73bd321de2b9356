package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"graphmind/internal/graph"
	"graphmind/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func (s *Service) handleAddEpisodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodes, errMsg := parseEpisodes(req.GetArguments()["episodes"])
	if errMsg != "" {
		return mcp.NewToolResultError("add_episodes: " + errMsg), nil
	}

	nodes, edges, err := s.ingestor.IngestAll(ctx, episodes)
	if err != nil {
		s.logger.Error("Episode ingestion failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("add_episodes: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Ingested %d episode(s): created %d entities and %d relationships.",
		len(episodes), nodes, edges,
	)), nil
}

func (s *Service) handleAddEpisodeFromURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageURL, err := req.RequireString("url")
	if err != nil || strings.TrimSpace(pageURL) == "" {
		return mcp.NewToolResultError("add_episode_from_url: 'url' must be a non-empty string"), nil
	}

	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.logger.Error("Page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("add_episode_from_url: %v", err)), nil
	}

	name := page.Title
	if name == "" {
		name = page.URL
	}
	episode := graph.Episode{
		Name:              name,
		Content:           page.Content,
		Source:            page.URL,
		SourceDescription: "web page",
	}

	nodes, edges, err := s.ingestor.Ingest(ctx, episode)
	if err != nil {
		s.logger.Error("Episode ingestion failed", zap.String("url", pageURL), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("add_episode_from_url: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Ingested %q: created %d entities and %d relationships.",
		name, nodes, edges,
	)), nil
}

func (s *Service) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("search: 'query' must be a non-empty string"), nil
	}
	limit := req.GetInt("num_results", 10)
	mode := req.GetString("search_type", pipeline.SearchModeHybrid)

	results, err := s.searcher.Search(ctx, query, limit, mode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No results found for %q.", query)), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

func (s *Service) handleGetEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil || strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("get_entities: 'name' must be a non-empty string"), nil
	}
	entityType := req.GetString("entity_type", "")

	nodes, err := s.searcher.FindEntities(ctx, name, entityType)
	if err != nil {
		s.logger.Error("Entity lookup failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("get_entities: %v", err)), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No entities found matching %q.", name)), nil
	}

	return mcp.NewToolResultText(formatEntities(nodes)), nil
}

func (s *Service) handleGetFacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceName := req.GetString("source_node_name", "")
	targetName := req.GetString("target_node_name", "")
	factType := req.GetString("fact_type", "")

	facts, err := s.searcher.FindFacts(ctx, sourceName, targetName, factType)
	if err != nil {
		s.logger.Error("Fact lookup failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("get_facts: %v", err)), nil
	}
	if len(facts) == 0 {
		return mcp.NewToolResultText("No facts found."), nil
	}

	return mcp.NewToolResultText(formatFacts(facts)), nil
}

func (s *Service) handleHealthCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.health.Check(ctx)

	label := "unhealthy"
	if status.Healthy() {
		label = "healthy"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Status: %s\ndatabase: %t\nllm: %t\nembedding: %t",
		label, status.Database, status.LLM, status.Embedding,
	)), nil
}

// ---------------------------------------------------------------------------
// Argument parsing and result rendering
// ---------------------------------------------------------------------------

// parseEpisodes validates the raw episodes argument. Returns a non-empty
// message describing the first violation, if any.
func parseEpisodes(raw interface{}) ([]graph.Episode, string) {
	items, ok := raw.([]interface{})
	if !ok || len(items) == 0 {
		return nil, "'episodes' must be a non-empty list"
	}

	episodes := make([]graph.Episode, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Sprintf("episode %d must be an object", i)
		}

		name, _ := m["name"].(string)
		content, _ := m["content"].(string)
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Sprintf("episode %d is missing 'name'", i)
		}
		if strings.TrimSpace(content) == "" {
			return nil, fmt.Sprintf("episode %q is missing 'content'", name)
		}

		episode := graph.Episode{
			Name:    name,
			Content: content,
		}
		if v, ok := m["source_description"].(string); ok {
			episode.SourceDescription = v
		}
		if v, ok := m["source"].(string); ok {
			episode.Source = v
		}
		if v, ok := m["reference_time"].(string); ok && v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Sprintf("episode %q has invalid reference_time %q (want RFC 3339)", name, v)
			}
			episode.ReferenceTime = &t
		}

		episodes = append(episodes, episode)
	}
	return episodes, ""
}

func formatSearchResults(results []graph.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s):\n", len(results))
	for i, result := range results {
		fmt.Fprintf(&b, "%d. %s (%s) [score %.3f]", i+1, result.Name, result.Type, result.Score)
		if result.Summary != "" {
			fmt.Fprintf(&b, " - %s", result.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEntities(nodes []graph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d entit(ies):\n", len(nodes))
	for i, node := range nodes {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, node.Name, node.Type)
		if node.Summary != "" {
			fmt.Fprintf(&b, " - %s", node.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatFacts(facts []graph.Fact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d fact(s):\n", len(facts))
	for i, fact := range facts {
		fmt.Fprintf(&b, "%d. %s -[%s]-> %s", i+1, fact.Source.Name, fact.Edge.Type, fact.Target.Name)
		if fact.Edge.Summary != "" {
			fmt.Fprintf(&b, ": %s", fact.Edge.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
