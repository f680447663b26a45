package generation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/retry"
)

// RetryingGenerator retries transient provider failures under a backoff policy.
type RetryingGenerator struct {
	inner  domain.Generator
	policy retry.Policy
	logger *zap.Logger
}

// NewRetryingGenerator wraps inner with policy.
func NewRetryingGenerator(inner domain.Generator, policy retry.Policy, logger *zap.Logger) *RetryingGenerator {
	return &RetryingGenerator{inner: inner, policy: policy, logger: logger}
}

// Generate implements domain.Generator.
func (r *RetryingGenerator) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	var result domain.GenerationResult
	attempts, err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		res, err := r.inner.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if attempts > 1 {
		r.logger.Info("Generation retried", zap.Int("attempts", attempts), zap.Bool("ok", err == nil))
	}
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}
	return result, nil
}
