package query

import (
	"context"

	"github.com/kailas-cloud/ragquery/internal/domain"
)

// DocumentFetcher reads a session's documents from the document store.
type DocumentFetcher interface {
	FetchDocuments(ctx context.Context, sessionID string) ([]domain.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
