package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/metrics"
	"github.com/kailas-cloud/ragquery/internal/retry"
)

// Embedder calls POST /api/embeddings.
type Embedder struct {
	c *client
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg Config) *Embedder {
	return &Embedder{c: newClient(cfg)}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements domain.Embedder. Ollama reports no token usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	model := e.c.model
	start := time.Now()

	var resp embeddingResponse
	err := e.c.postJSON(ctx, "/api/embeddings", embeddingRequest{Model: model, Prompt: text}, &resp)

	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, model, "api_error").Inc()
		return domain.EmbeddingResult{}, providerError(domain.ErrEmbeddingProviderError, err)
	}

	if len(resp.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, model, "empty_response").Inc()
		return domain.EmbeddingResult{}, retry.Permanent(
			fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, model, "success").Inc()
	return domain.EmbeddingResult{Embedding: resp.Embedding}, nil
}

// HealthCheck implements domain.HealthChecker.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	return e.c.healthCheck(ctx)
}
