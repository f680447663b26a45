package ragquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 4 << 10

// Client is the ragquery SDK entry point.
type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
	obs     *observer
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ragquery: invalid base URL %q", baseURL)
	}

	cfg := &clientConfig{timeout: defaultTimeout, headers: http.Header{}}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    hc,
		headers: cfg.headers,
		obs:     obs,
	}, nil
}

type queryRequest struct {
	Query     string         `json:"query"`
	Filters   map[string]any `json:"filters,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

type queryResponse struct {
	Answers []struct {
		Answer string `json:"answer"`
	} `json:"answers"`
}

type embeddingRequest struct {
	Text string `json:"text"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Query asks a question and returns the first answer.
func (c *Client) Query(ctx context.Context, question string, opts ...QueryOption) (answer string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	req := queryRequest{Query: question}
	for _, o := range opts {
		o(&req)
	}

	var resp queryResponse
	if err = c.do(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Answers) == 0 || resp.Answers[0].Answer == "" {
		return "", ErrNoAnswer
	}
	return resp.Answers[0].Answer, nil
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) (vec []float32, err error) {
	start := time.Now()
	defer func() { c.obs.observe("embed", start, err) }()

	var resp embeddingResponse
	if err = c.do(ctx, http.MethodPost, "/embedding", embeddingRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// do sends body as JSON and decodes a 200 (or any of accept) response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ragquery: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ragquery: build %s: %w", path, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ragquery: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && !accepted(resp.StatusCode, accept) {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ragquery: decode %s: %w", path, err)
	}
	return nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorResponse
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// IsAPIError reports whether err is an *APIError with the given status.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
