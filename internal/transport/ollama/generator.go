package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/metrics"
	"github.com/kailas-cloud/ragquery/internal/retry"
)

// Generator calls POST /api/generate without streaming.
type Generator struct {
	c *client
}

// NewGenerator creates an Ollama generation provider.
func NewGenerator(cfg Config) *Generator {
	return &Generator{c: newClient(cfg)}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	model := g.c.model
	start := time.Now()

	var resp generateResponse
	err := g.c.postJSON(ctx, "/api/generate", generateRequest{Model: model, Prompt: prompt, Stream: false}, &resp)

	metrics.GenerationRequestDuration.WithLabelValues(providerName, model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		return domain.GenerationResult{}, providerError(domain.ErrGenerationProviderError, err)
	}

	if resp.Response == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		return domain.GenerationResult{}, retry.Permanent(
			fmt.Errorf("empty generate response: %w", domain.ErrGenerationProviderError))
	}

	metrics.GenerationRequestsTotal.WithLabelValues(providerName, model, "success").Inc()
	if resp.PromptEvalCount > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(providerName, model, "prompt").Add(float64(resp.PromptEvalCount))
	}
	if resp.EvalCount > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(providerName, model, "completion").Add(float64(resp.EvalCount))
	}

	return domain.GenerationResult{
		Text:             resp.Response,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}

// HealthCheck implements domain.HealthChecker.
func (g *Generator) HealthCheck(ctx context.Context) error {
	return g.c.healthCheck(ctx)
}
