package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/retry"
)

// RetryingEmbedder retries transient provider failures under a backoff policy.
// Errors marked permanent by the transport fail on the first attempt.
type RetryingEmbedder struct {
	inner  domain.Embedder
	policy retry.Policy
	logger *zap.Logger
}

// NewRetryingEmbedder wraps inner with policy.
func NewRetryingEmbedder(inner domain.Embedder, policy retry.Policy, logger *zap.Logger) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, policy: policy, logger: logger}
}

// Embed implements domain.Embedder.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var result domain.EmbeddingResult
	attempts, err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		res, err := r.inner.Embed(ctx, text)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if attempts > 1 {
		r.logger.Info("Embedding retried", zap.Int("attempts", attempts), zap.Bool("ok", err == nil))
	}
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}
	return result, nil
}
