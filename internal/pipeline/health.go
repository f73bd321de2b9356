package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"graphmind/pkg/logger"
)

// healthPrompt is a trivial fixed prompt; the probe only checks that the
// model answers and that the answer contains the expected token.
const (
	healthPrompt = "Reply with exactly the word OK."
	healthToken  = "OK"
)

// HealthStatus reports coarse liveness of the three external dependencies
type HealthStatus struct {
	Database  bool `json:"database"`
	LLM       bool `json:"llm"`
	Embedding bool `json:"embedding"`
}

// Healthy is true only when every dependency probe succeeded
func (s HealthStatus) Healthy() bool {
	return s.Database && s.LLM && s.Embedding
}

// HealthChecker probes the graph store, the language model, and the
// embedding provider without mutating state
type HealthChecker struct {
	extractor Extractor
	embedder  Embedder
	store     Store
	logger    *zap.Logger
}

// NewHealthChecker creates a health checker over the three dependencies
func NewHealthChecker(extractor Extractor, embedder Embedder, store Store) *HealthChecker {
	return &HealthChecker{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		logger:    logger.Get(),
	}
}

// Check runs the three probes concurrently. Each probe is fault-isolated: a
// failure is logged and recorded as false, never returned as an error, and
// never blocks the other probes.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	var status HealthStatus
	var g errgroup.Group

	g.Go(func() error {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Database health probe failed", zap.Error(err))
			return nil
		}
		status.Database = true
		return nil
	})

	g.Go(func() error {
		reply, err := h.extractor.GenerateText(ctx, healthPrompt)
		if err != nil {
			h.logger.Warn("LLM health probe failed", zap.Error(err))
			return nil
		}
		if !strings.Contains(strings.ToUpper(reply), healthToken) {
			h.logger.Warn("LLM health probe returned unexpected reply",
				zap.String("reply", reply),
			)
			return nil
		}
		status.LLM = true
		return nil
	})

	g.Go(func() error {
		if _, err := h.embedder.Embed(ctx, healthToken); err != nil {
			h.logger.Warn("Embedding health probe failed", zap.Error(err))
			return nil
		}
		status.Embedding = true
		return nil
	})

	_ = g.Wait()
	return status
}
