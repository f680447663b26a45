package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a failure the query pipeline can absorb.
	Degraded Status = "degraded"
	// Unhealthy indicates the embedding provider is down, so no query can succeed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache      CachePinger
	embedding  ProviderChecker
	generation ProviderChecker
}

// New creates a Service. Any checker can be nil and is then skipped.
func New(cache CachePinger, embedding, generation ProviderChecker) *Service {
	return &Service{cache: cache, embedding: embedding, generation: generation}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks["cache"] = result(ctx, "cache", s.cache.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(ctx, "embedding", s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		checks["generation"] = result(ctx, "generation", s.generation.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["embedding"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(ctx context.Context, name string, err error) CheckResult {
	if err != nil {
		logger.FromContext(ctx).Warn("Health check failed", zap.String("check", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
