package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/logger"
)

// EmbeddingClient turns provider failures into an "unavailable" signal.
type EmbeddingClient struct {
	embedder Embedder
	role     string
}

// NewEmbeddingClient creates an EmbeddingClient; role labels log lines ("query" or "document").
func NewEmbeddingClient(embedder Embedder, role string) *EmbeddingClient {
	return &EmbeddingClient{embedder: embedder, role: role}
}

// Embed returns the vector of text, or ok=false when the provider failed
// or returned no vector. Errors are logged, never returned.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) (vector []float32, ok bool) {
	result, err := c.embedder.Embed(ctx, text)
	if err != nil {
		logger.FromContext(ctx).Warn("Embedding unavailable",
			zap.String("role", c.role),
			zap.Error(err),
		)
		return nil, false
	}
	if len(result.Embedding) == 0 {
		logger.FromContext(ctx).Warn("Embedding unavailable: empty vector", zap.String("role", c.role))
		return nil, false
	}
	return result.Embedding, true
}
