// Package mcptools exposes the ingestion and retrieval pipelines as MCP
// tools. Tool builders define schemas only; execution lives in handlers.go.
package mcptools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"graphmind/internal/pipeline"
	"graphmind/internal/webtext"
	"graphmind/pkg/logger"
)

// Service wires the pipelines behind the MCP tool handlers
type Service struct {
	ingestor *pipeline.Ingestor
	searcher *pipeline.Searcher
	health   *pipeline.HealthChecker
	fetcher  *webtext.Fetcher
	logger   *zap.Logger
}

// NewService creates the tool service over the given pipelines
func NewService(ingestor *pipeline.Ingestor, searcher *pipeline.Searcher, health *pipeline.HealthChecker, fetcher *webtext.Fetcher) *Service {
	return &Service{
		ingestor: ingestor,
		searcher: searcher,
		health:   health,
		fetcher:  fetcher,
		logger:   logger.Get(),
	}
}

// Register attaches every tool to the supplied MCP server instance
func (s *Service) Register(srv *server.MCPServer) {
	srv.AddTool(buildAddEpisodesTool(), s.handleAddEpisodes)
	srv.AddTool(buildAddEpisodeFromURLTool(), s.handleAddEpisodeFromURL)
	srv.AddTool(buildSearchTool(), s.handleSearch)
	srv.AddTool(buildGetEntitiesTool(), s.handleGetEntities)
	srv.AddTool(buildGetFactsTool(), s.handleGetFacts)
	srv.AddTool(buildHealthCheckTool(), s.handleHealthCheck)
}

// ---------------------------------------------------------------------------
// Tool builders (schema only, no execution logic)
// ---------------------------------------------------------------------------

func buildAddEpisodesTool() mcp.Tool {
	return mcp.NewTool(
		"add_episodes",
		mcp.WithDescription("Ingests one or more free-text episodes into the knowledge graph: entities and relationships are extracted, embedded, and persisted."),
		mcp.WithArray("episodes",
			mcp.Description("Ordered list of episodes to ingest, each {name, content, source_description?, source?, reference_time?}"),
			mcp.Required(),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":               map[string]any{"type": "string"},
					"content":            map[string]any{"type": "string"},
					"source_description": map[string]any{"type": "string"},
					"source":             map[string]any{"type": "string"},
					"reference_time":     map[string]any{"type": "string", "description": "RFC 3339 timestamp"},
				},
				"required": []string{"name", "content"},
			}),
		),
	)
}

func buildAddEpisodeFromURLTool() mcp.Tool {
	return mcp.NewTool(
		"add_episode_from_url",
		mcp.WithDescription("Fetches a web page, strips it to plain text, and ingests it as one episode named after the page title."),
		mcp.WithString("url",
			mcp.Description("URL of the page to ingest"),
			mcp.Required(),
		),
	)
}

func buildSearchTool() mcp.Tool {
	return mcp.NewTool(
		"search",
		mcp.WithDescription("Searches the knowledge graph and returns ranked entities."),
		mcp.WithString("query",
			mcp.Description("Search query text"),
			mcp.Required(),
		),
		mcp.WithNumber("num_results",
			mcp.Description("Maximum number of results, between 1 and 100 (default 10)"),
		),
		mcp.WithString("search_type",
			mcp.Description("Retrieval mode (default 'hybrid')"),
			mcp.Enum(pipeline.SearchModeSemantic, pipeline.SearchModeKeyword, pipeline.SearchModeHybrid),
		),
	)
}

func buildGetEntitiesTool() mcp.Tool {
	return mcp.NewTool(
		"get_entities",
		mcp.WithDescription("Returns entities whose name contains the given substring, optionally filtered by exact type."),
		mcp.WithString("name",
			mcp.Description("Substring to match against entity names (case-insensitive)"),
			mcp.Required(),
		),
		mcp.WithString("entity_type",
			mcp.Description("Exact entity type filter, e.g. 'person'"),
		),
	)
}

func buildGetFactsTool() mcp.Tool {
	return mcp.NewTool(
		"get_facts",
		mcp.WithDescription("Returns relationships between entities, filtered by endpoint name substrings and/or exact relationship type. All filters are optional."),
		mcp.WithString("source_node_name",
			mcp.Description("Substring to match against source entity names"),
		),
		mcp.WithString("target_node_name",
			mcp.Description("Substring to match against target entity names"),
		),
		mcp.WithString("fact_type",
			mcp.Description("Exact relationship type filter, e.g. 'works_at'"),
		),
	)
}

func buildHealthCheckTool() mcp.Tool {
	return mcp.NewTool(
		"health_check",
		mcp.WithDescription("Reports liveness of the graph database, the language model, and the embedding provider."),
	)
}
