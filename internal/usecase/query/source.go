package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
)

// DocumentSource yields the candidate documents of a session. It never fails:
// a missing session or any store error yields an empty sequence.
type DocumentSource struct {
	fetcher DocumentFetcher
}

// NewDocumentSource creates a DocumentSource.
func NewDocumentSource(fetcher DocumentFetcher) *DocumentSource {
	return &DocumentSource{fetcher: fetcher}
}

// FetchForSession returns the session's documents in store order.
func (s *DocumentSource) FetchForSession(ctx context.Context, sessionID string) []domain.Document {
	if sessionID == "" {
		metrics.DocumentFetchTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	docs, err := s.fetcher.FetchDocuments(ctx, sessionID)
	if err != nil {
		metrics.DocumentFetchTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("Document store unavailable, using fallback context",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil
	}

	if len(docs) == 0 {
		metrics.DocumentFetchTotal.WithLabelValues("empty").Inc()
		return nil
	}

	metrics.DocumentFetchTotal.WithLabelValues("ok").Inc()
	return docs
}
