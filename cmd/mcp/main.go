package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphmind/internal/adapter"
	"graphmind/internal/graph"
	"graphmind/internal/mcptools"
	"graphmind/internal/pipeline"
	"graphmind/internal/webtext"
	"graphmind/pkg/config"
	"graphmind/pkg/logger"
)

const version = "0.1.0"

func main() {
	// Logs must stay off stdout: the MCP stream owns it
	if err := logger.InitStderr("production"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting MCP server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)
	if err := repo.EnsureIndexes(ctx, cfg.EmbeddingDimension); err != nil {
		log.Fatal("Failed to ensure graph indexes", zap.Error(err))
	}

	extractor := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	embedder := adapter.NewEmbeddingAdapter(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)

	ingestor := pipeline.NewIngestor(extractor, embedder, repo, pipeline.DefaultSummaryLimit)
	searcher := pipeline.NewSearcher(embedder, repo)
	health := pipeline.NewHealthChecker(extractor, embedder, repo)
	service := mcptools.NewService(ingestor, searcher, health, webtext.NewFetcher())

	srv := server.NewMCPServer("graphmind", version,
		server.WithToolCapabilities(false),
	)
	service.Register(srv)

	log.Info("MCP server listening on stdio", zap.String("version", version))
	if err := server.ServeStdio(srv); err != nil {
		log.Fatal("MCP server exited", zap.Error(err))
	}
}
