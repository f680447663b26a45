// Package docstore fetches session documents from the storage service.
package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kailas-cloud/ragquery/internal/domain"
)

// maxResponseBytes bounds a session document listing.
const maxResponseBytes = 32 << 20

var tracer = otel.Tracer("github.com/kailas-cloud/ragquery/internal/transport/docstore")

// Config holds the storage service settings.
type Config struct {
	BaseURL     string
	APIKey      string // sent as x-api-key when set
	BearerToken string // sent as Authorization: Bearer when set
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client reads documents over the storage service REST API.
type Client struct {
	baseURL string
	apiKey  string
	bearer  string
	http    *http.Client
}

// NewClient creates a document store client.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		bearer:  cfg.BearerToken,
		http:    hc,
	}
}

// FetchDocuments returns the documents of a session in store order.
// Every failure wraps domain.ErrDocumentStoreError.
func (c *Client) FetchDocuments(ctx context.Context, sessionID string) ([]domain.Document, error) {
	ctx, span := tracer.Start(ctx, "docstore fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	docs, shapeName, err := c.fetch(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", domain.ErrDocumentStoreError, err)
	}
	span.SetAttributes(
		attribute.String("docstore.shape", shapeName),
		attribute.Int("docstore.documents", len(docs)),
	)
	return docs, nil
}

func (c *Client) fetch(ctx context.Context, sessionID string) ([]domain.Document, string, error) {
	endpoint := c.baseURL + "/api/v1/sessions/" + url.PathEscape(sessionID) + "/documents"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get documents: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("get documents: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read documents: %w", err)
	}

	return DecodeDocuments(body)
}
