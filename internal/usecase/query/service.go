package query

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/logger"
	"github.com/kailas-cloud/ragquery/internal/metrics"
)

var tracer = otel.Tracer("github.com/kailas-cloud/ragquery/internal/usecase/query")

// DefaultConcurrency bounds in-flight embedding calls per request when unset.
const DefaultConcurrency = 8

// Options tunes the pipeline.
type Options struct {
	// Concurrency caps in-flight embedding calls per request.
	Concurrency int
	// RequestTimeout bounds a whole /query pipeline; zero disables it.
	RequestTimeout time.Duration
}

// Service answers questions from the best-matching session document.
type Service struct {
	source   *DocumentSource
	queryEmb *EmbeddingClient
	docEmb   *EmbeddingClient
	answers  *AnswerGenerator
	opts     Options
}

// New creates a query service. queryEmb and docEmb may be the same embedder;
// they are split so each role can carry its own instruction prefix.
func New(docs DocumentFetcher, queryEmb, docEmb Embedder, gen Generator, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Service{
		source:   NewDocumentSource(docs),
		queryEmb: NewEmbeddingClient(queryEmb, "query"),
		docEmb:   NewEmbeddingClient(docEmb, "document"),
		answers:  NewAnswerGenerator(gen),
		opts:     opts,
	}
}

// Answer runs the retrieve-then-generate pipeline for q.
// The only failures are a missing question and an unavailable query vector;
// every other collaborator failure degrades into a fallback.
func (s *Service) Answer(ctx context.Context, q domain.Query) (domain.Answer, error) {
	if q.Text == "" {
		metrics.QueriesTotal.WithLabelValues("invalid").Inc()
		return domain.Answer{}, domain.ErrMissingQuery
	}

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "query.Answer")
	defer span.End()

	log := logger.FromContext(ctx)
	if len(q.Filters) > 0 {
		log.Debug("Query filters accepted but not applied", zap.Any("filters", q.Filters))
	}

	docs := s.fetch(ctx, q.SessionID)

	queryVec, candidates, err := s.embed(ctx, q.Text, docs)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("query_embedding_failed").Inc()
		span.RecordError(err)
		return domain.Answer{}, fmt.Errorf("answer: %w", err)
	}

	best := s.rank(ctx, queryVec, candidates)

	_, genSpan := tracer.Start(ctx, "query.generate")
	answer, generated := s.answers.Generate(ctx, best.Document.Text(), q.Text)
	genSpan.SetAttributes(attribute.Bool("generated", generated))
	genSpan.End()

	if generated {
		metrics.QueriesTotal.WithLabelValues("answered").Inc()
	} else {
		metrics.QueriesTotal.WithLabelValues("fallback_answer").Inc()
	}
	return answer, nil
}

// Embed returns the raw embedding of text. Vectors come from the document
// embedder so they are comparable with stored document vectors.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, domain.ErrMissingText
	}

	ctx, span := tracer.Start(ctx, "query.Embed")
	defer span.End()

	vec, ok := s.docEmb.Embed(ctx, text)
	if !ok {
		span.RecordError(domain.ErrEmbeddingFailed)
		return nil, domain.ErrEmbeddingFailed
	}
	return vec, nil
}

func (s *Service) fetch(ctx context.Context, sessionID string) []domain.Document {
	ctx, span := tracer.Start(ctx, "query.fetch_documents")
	defer span.End()

	docs := domain.WithFallback(s.source.FetchForSession(ctx, sessionID))
	span.SetAttributes(attribute.Int("documents", len(docs)))
	return docs
}

func (s *Service) embed(ctx context.Context, text string, docs []domain.Document) ([]float32, []Candidate, error) {
	ctx, span := tracer.Start(ctx, "query.embed")
	defer span.End()

	return embedAll(ctx, s.queryEmb, s.docEmb, text, docs, s.opts.Concurrency)
}

func (s *Service) rank(ctx context.Context, queryVec []float32, candidates []Candidate) RankedCandidate {
	_, span := tracer.Start(ctx, "query.rank")
	defer span.End()

	unavailable := 0
	for _, c := range candidates {
		if c.Vector == nil {
			unavailable++
		}
	}
	metrics.CandidatesUnavailableTotal.Add(float64(unavailable))

	best, found := SelectBest(queryVec, candidates)
	if found {
		metrics.BestScore.Observe(best.Score)
	}

	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("unavailable", unavailable),
		attribute.Bool("found", found),
		attribute.Float64("score", best.Score),
	)
	logger.FromContext(ctx).Debug("Context document selected",
		zap.String("document_id", best.Document.ID()),
		zap.Int("index", best.Index),
		zap.Float64("score", best.Score),
		zap.Bool("scored", found),
	)
	return best
}
