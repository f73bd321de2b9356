package adapter

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"graphmind/pkg/logger"
)

// EmbeddingAdapter implements pipeline.Embedder over an OpenAI-compatible
// embeddings API
type EmbeddingAdapter struct {
	client    *openai.Client
	model     string
	dimension int
	logger    *zap.Logger
}

// NewEmbeddingAdapter creates a new embedding adapter
func NewEmbeddingAdapter(baseURL, apiKey, model string, dimension int) *EmbeddingAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &EmbeddingAdapter{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		dimension: dimension,
		logger:    logger.Get(),
	}
}

// Embed returns the fixed-length vector for the given text
func (a *EmbeddingAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(a.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	embedding := resp.Data[0].Embedding
	if a.dimension > 0 && len(embedding) != a.dimension {
		a.logger.Warn("Embedding dimension differs from configuration",
			zap.Int("expected", a.dimension),
			zap.Int("got", len(embedding)),
		)
	}
	return embedding, nil
}
