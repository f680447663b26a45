// Package ollama talks to the Ollama HTTP API for embeddings and completions.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kailas-cloud/ragquery/internal/retry"
)

const providerName = "ollama"

// maxErrorBody caps how much of a failed response is kept for the error message.
const maxErrorBody = 512

var tracer = otel.Tracer("github.com/kailas-cloud/ragquery/internal/transport/ollama")

// Config holds the Ollama connection settings shared by the embedder and generator.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

type client struct {
	baseURL string
	model   string
	http    *http.Client
}

func newClient(cfg Config) *client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    hc,
	}
}

// statusError is a non-2xx answer from Ollama.
type statusError struct {
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama %s: status %d: %s", e.Path, e.Status, e.Body)
}

// postJSON sends body to path and decodes a 2xx JSON answer into out.
// Client errors (4xx other than 408/429) are marked permanent for the retry layer.
func (c *client) postJSON(ctx context.Context, path string, body, out any) error {
	ctx, span := tracer.Start(ctx, "ollama "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", c.model),
			attribute.String("http.url", c.baseURL+path),
		),
	)
	defer span.End()

	err := c.doJSON(ctx, http.MethodPost, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal %s request: %w", path, err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("build %s request: %w", path, err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &statusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if isPermanentStatus(resp.StatusCode) {
			return retry.Permanent(se)
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("decode ollama %s response: %w", path, err))
	}
	return nil
}

func isPermanentStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 400 && status < 500
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// healthCheck lists local models and verifies the configured one is pulled.
func (c *client) healthCheck(ctx context.Context) error {
	var tags tagsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || strings.TrimSuffix(m.Name, ":latest") == c.model {
			return nil
		}
	}
	return fmt.Errorf("model %q is not pulled", c.model)
}

// providerError tags err with the domain sentinel, keeping it permanent for
// the retry layer when the cause was.
func providerError(sentinel, err error) error {
	wrapped := fmt.Errorf("%w: %w", sentinel, err)
	if retry.IsPermanent(err) {
		return retry.Permanent(wrapped)
	}
	return wrapped
}
