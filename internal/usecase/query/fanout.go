package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragquery/internal/domain"
)

// embedAll computes the query vector and every document vector concurrently,
// at most limit calls in flight. Only a query failure aborts the group;
// document failures leave the candidate unavailable.
func embedAll(
	ctx context.Context,
	queryClient, docClient *EmbeddingClient,
	queryText string,
	docs []domain.Document,
	limit int,
) ([]float32, []Candidate, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var queryVec []float32
	candidates := make([]Candidate, len(docs))

	g.Go(func() error {
		vec, ok := queryClient.Embed(gctx, queryText)
		if !ok {
			return domain.ErrQueryEmbeddingFailed
		}
		queryVec = vec
		return nil
	})

	for i, doc := range docs {
		i, doc := i, doc
		candidates[i].Document = doc
		if doc.IsEmpty() {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if vec, ok := docClient.Embed(gctx, doc.Text()); ok {
				candidates[i].Vector = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return queryVec, candidates, nil
}
