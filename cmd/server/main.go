package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphmind/internal/adapter"
	"graphmind/internal/graph"
	"graphmind/internal/pipeline"
	"graphmind/internal/webtext"
	"graphmind/pkg/config"
	apperrors "graphmind/pkg/errors"
	"graphmind/pkg/logger"
)

// ingestStatus maps an ingestion failure to a response code: transient
// store/provider failures are worth retrying, everything else is not
func ingestStatus(err error) int {
	if apperrors.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// parseLimit parses the limit query parameter, rejecting anything that is
// not a plain integer. Empty means the default.
func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Initialize dependencies
	repo := graph.NewRepository(driver, cfg.Neo4jDatabase)
	if err := repo.EnsureIndexes(ctx, cfg.EmbeddingDimension); err != nil {
		log.Fatal("Failed to ensure graph indexes", zap.Error(err))
	}

	extractor := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	embedder := adapter.NewEmbeddingAdapter(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)

	ingestor := pipeline.NewIngestor(extractor, embedder, repo, pipeline.DefaultSummaryLimit)
	searcher := pipeline.NewSearcher(embedder, repo)
	health := pipeline.NewHealthChecker(extractor, embedder, repo)
	fetcher := webtext.NewFetcher()

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := health.Check(c.Request.Context())
		code := http.StatusOK
		label := "healthy"
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
			label = "unhealthy"
		}
		c.JSON(code, gin.H{
			"status":    label,
			"database":  status.Database,
			"llm":       status.LLM,
			"embedding": status.Embedding,
		})
	})

	// API routes
	api := router.Group("/api")
	{
		// Ingest episodes
		api.POST("/episodes", func(c *gin.Context) {
			var req struct {
				Episodes []graph.Episode `json:"episodes" binding:"required,min=1"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			for _, episode := range req.Episodes {
				if episode.Name == "" || episode.Content == "" {
					c.JSON(http.StatusBadRequest, gin.H{"error": "every episode needs a name and content"})
					return
				}
			}

			nodes, edges, err := ingestor.IngestAll(c.Request.Context(), req.Episodes)
			if err != nil {
				log.Error("Failed to ingest episodes", zap.Error(err))
				c.JSON(ingestStatus(err), gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"episodes": len(req.Episodes),
				"nodes":    nodes,
				"edges":    edges,
			})
		})

		// Ingest a web page as an episode
		api.POST("/episodes/url", func(c *gin.Context) {
			var req struct {
				URL string `json:"url" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			page, err := fetcher.Fetch(c.Request.Context(), req.URL)
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}

			name := page.Title
			if name == "" {
				name = page.URL
			}
			nodes, edges, err := ingestor.Ingest(c.Request.Context(), graph.Episode{
				Name:              name,
				Content:           page.Content,
				Source:            page.URL,
				SourceDescription: "web page",
			})
			if err != nil {
				log.Error("Failed to ingest page", zap.String("url", req.URL), zap.Error(err))
				c.JSON(ingestStatus(err), gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{
				"episode": name,
				"nodes":   nodes,
				"edges":   edges,
			})
		})

		// Search
		api.GET("/search", func(c *gin.Context) {
			query := c.Query("q")
			if query == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
				return
			}
			limit, err := parseLimit(c.Query("limit"), 10)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
				return
			}
			mode := c.DefaultQuery("mode", pipeline.SearchModeHybrid)

			results, err := searcher.Search(c.Request.Context(), query, limit, mode)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{"results": results})
		})

		// Entity lookup
		api.GET("/entities", func(c *gin.Context) {
			name := c.Query("name")
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'name' is required"})
				return
			}

			nodes, err := searcher.FindEntities(c.Request.Context(), name, c.Query("type"))
			if err != nil {
				log.Error("Failed to find entities", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "entity lookup failed"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"entities": nodes})
		})

		// Fact lookup
		api.GET("/facts", func(c *gin.Context) {
			facts, err := searcher.FindFacts(
				c.Request.Context(),
				c.Query("source"),
				c.Query("target"),
				c.Query("type"),
			)
			if err != nil {
				log.Error("Failed to find facts", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "fact lookup failed"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"facts": facts})
		})
	}

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
