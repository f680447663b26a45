package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/ragquery/internal/domain"
	healthuc "github.com/kailas-cloud/ragquery/internal/usecase/health"
)

type mockQueryService struct {
	answer   domain.Answer
	vector   []float32
	err      error
	lastQ    domain.Query
	lastText string
	// tokens is recorded into the request usage collector on every call.
	tokens int
}

func (m *mockQueryService) Answer(ctx context.Context, q domain.Query) (domain.Answer, error) {
	m.lastQ = q
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).Record(m.tokens)
	}
	if m.err == nil && q.Text == "" {
		return domain.Answer{}, domain.ErrMissingQuery
	}
	return m.answer, m.err
}

func (m *mockQueryService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.lastText = text
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).Record(m.tokens)
	}
	if m.err == nil && text == "" {
		return nil, domain.ErrMissingText
	}
	return m.vector, m.err
}

type mockHealthService struct {
	report healthuc.Report
}

func (m *mockHealthService) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(q QueryService, h HealthService) *chi.Mux {
	if h == nil {
		h = &mockHealthService{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	r := chi.NewRouter()
	NewServer(q, h, 1024).Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
