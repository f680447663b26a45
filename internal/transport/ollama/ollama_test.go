package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/metrics"
	"github.com/kailas-cloud/ragquery/internal/retry"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

func testConfig(url string) Config {
	return Config{BaseURL: url + "/", Model: "nomic-embed-text", Timeout: 5 * time.Second}
}

func TestEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "cats are great" {
			t.Errorf("unexpected request body: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.5,-0.25,1.0]}`))
	}))
	defer server.Close()

	result, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), "cats are great")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	want := []float32{0.5, -0.25, 1.0}
	if len(result.Embedding) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(result.Embedding))
	}
	for i := range want {
		if result.Embedding[i] != want[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, result.Embedding[i], want[i])
		}
	}
}

func TestEmbedder_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if !retry.IsPermanent(err) {
		t.Error("empty embedding should not be retried")
	}
}

func TestEmbedder_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{"model not found", http.StatusNotFound, true},
		{"bad request", http.StatusBadRequest, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"server error", http.StatusInternalServerError, false},
		{"unavailable", http.StatusServiceUnavailable, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			}))
			defer server.Close()

			_, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), "x")
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
			var se *statusError
			if !errors.As(err, &se) || se.Status != tc.status {
				t.Errorf("expected statusError %d, got %v", tc.status, err)
			}
			if retry.IsPermanent(err) != tc.permanent {
				t.Errorf("permanent = %v, want %v", retry.IsPermanent(err), tc.permanent)
			}
		})
	}
}

func TestEmbedder_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewEmbedder(testConfig(url)).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if retry.IsPermanent(err) {
		t.Error("connection failures should be retryable")
	}
}

func TestEmbedder_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewEmbedder(testConfig(server.URL)).Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_RetryKeepsSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	emb := NewEmbedder(testConfig(server.URL))
	attempts, err := retry.Do(context.Background(), retry.Policy{MaxRetries: 3, Initial: time.Millisecond},
		func(ctx context.Context) error {
			_, err := emb.Embed(ctx, "x")
			return err
		})
	if attempts != 1 {
		t.Errorf("expected permanent failure after 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("sentinel lost through retry: %v", err)
	}
}

func TestGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if raw["model"] != "mistral" {
			t.Errorf("unexpected model: %v", raw["model"])
		}
		if stream, ok := raw["stream"].(bool); !ok || stream {
			t.Errorf("expected stream=false to be sent explicitly, got %v", raw["stream"])
		}
		if raw["prompt"] != "Context:\nc\n\nQuestion: q\nAnswer:" {
			t.Errorf("unexpected prompt: %q", raw["prompt"])
		}

		_, _ = w.Write([]byte(`{"response":"Cats are great.","done":true,"prompt_eval_count":12,"eval_count":4}`))
	}))
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL, Model: "mistral", Timeout: 5 * time.Second})
	result, err := gen.Generate(context.Background(), "Context:\nc\n\nQuestion: q\nAnswer:")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Text != "Cats are great." {
		t.Errorf("unexpected text %q", result.Text)
	}
	if result.PromptTokens != 12 || result.CompletionTokens != 4 {
		t.Errorf("unexpected usage: %+v", result)
	}
}

func TestGenerator_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL, Model: "mistral"})
	_, err := gen.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Fatalf("expected ErrGenerationProviderError, got %v", err)
	}
}

func TestGenerator_EmptyResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"response":"","done":true,"prompt_eval_count":12,"eval_count":0}`))
	}))
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL, Model: "mistral"})
	_, err := gen.Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrGenerationProviderError) {
		t.Fatalf("expected ErrGenerationProviderError, got %v", err)
	}
	if !retry.IsPermanent(err) {
		t.Error("empty completion must not be retried")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single request, got %d", n)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tags" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"nomic-embed-text:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer server.Close()

	if err := NewEmbedder(testConfig(server.URL)).HealthCheck(context.Background()); err != nil {
		t.Errorf("expected pulled model to be healthy: %v", err)
	}
	if err := NewGenerator(Config{BaseURL: server.URL, Model: "mistral:7b"}).HealthCheck(context.Background()); err != nil {
		t.Errorf("expected tagged model to be healthy: %v", err)
	}
	if err := NewGenerator(Config{BaseURL: server.URL, Model: "llama3"}).HealthCheck(context.Background()); err == nil {
		t.Error("expected error for a model that is not pulled")
	}
}
