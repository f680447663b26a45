package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
)

// FallbackAnswer replaces the answer whenever generation fails.
const FallbackAnswer = "Failed to generate answer from LLM."

// BuildPrompt renders the grounded prompt for a context document and question.
func BuildPrompt(context, question string) string {
	return "Context:\n" + context + "\n\nQuestion: " + question + "\nAnswer:"
}

// AnswerGenerator grounds one generation call in a context document.
type AnswerGenerator struct {
	generator Generator
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(generator Generator) *AnswerGenerator {
	return &AnswerGenerator{generator: generator}
}

// Generate always returns an Answer; generated is false when the fixed
// fallback text was substituted.
func (g *AnswerGenerator) Generate(ctx context.Context, contextText, question string) (answer domain.Answer, generated bool) {
	result, err := g.generator.Generate(ctx, BuildPrompt(contextText, question))
	if err != nil {
		metrics.GenerationFallbacksTotal.Inc()
		logger.FromContext(ctx).Error("LLM error, answering with fallback", zap.Error(err))
		return domain.Answer{Text: FallbackAnswer}, false
	}
	return domain.Answer{Text: result.Text}, true
}
