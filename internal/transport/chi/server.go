package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kailas-cloud/ragquery/internal/domain"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
)

// Banner is the body of GET /.
const Banner = "RAG Backend is running."

// QueryService answers questions and embeds raw text.
type QueryService interface {
	Answer(ctx context.Context, q domain.Query) (domain.Answer, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HealthService reports collaborator readiness.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the ragquery HTTP API.
type Server struct {
	query         QueryService
	health        HealthService
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. maxBodyBytes <= 0 leaves request bodies unbounded.
func NewServer(query QueryService, health HealthService, maxBodyBytes int64) *Server {
	return &Server{
		query:         query,
		health:        health,
		maxBodyBytes:  maxBodyBytes,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Post("/embedding", s.Embedding)
	r.Post("/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type queryRequest struct {
	Query     string         `json:"query"`
	Filters   map[string]any `json:"filters,omitempty"`
	SessionID string         `json:"sessionId"`
}

type answerItem struct {
	Answer string `json:"answer"`
}

type queryResponse struct {
	Answers []answerItem `json:"answers"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, Banner)
}

// Embedding handles POST /embedding.
func (s *Server) Embedding(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if err := s.decode(w, r, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	vec, err := s.query.Embed(ctx, req.Text)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, embeddingResponse{Embedding: vec})
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	answer, err := s.query.Answer(ctx, domain.Query{
		Text:      req.Query,
		SessionID: req.SessionID,
		Filters:   req.Filters,
	})
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Answers: []answerItem{{Answer: answer.Text}}})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// decode reads a JSON body into v. An empty body decodes as an empty object.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if s.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}

	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errors.Join(domain.ErrInvalidBody, err)
	}
	return nil
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Calls() == 0 {
		return
	}
	w.Header().Set("X-Embedding-Calls", strconv.FormatInt(usage.Calls(), 10))
	w.Header().Set("X-Embedding-Tokens", strconv.FormatInt(usage.TotalTokens(), 10))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
