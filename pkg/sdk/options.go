package ragquery

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultTimeout = 2 * time.Minute

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	timeout    time.Duration
	headers    http.Header

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout bounds each call. Default: 2 minutes, since generation is slow.
// Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHeader adds a header to every request, e.g. for a gateway in front of the API.
func WithHeader(key, value string) Option {
	return optionFunc(func(c *clientConfig) {
		c.headers.Add(key, value)
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// QueryOption scopes a single Query call.
type QueryOption func(*queryRequest)

// InSession retrieves context from the documents of a session.
func InSession(sessionID string) QueryOption {
	return func(r *queryRequest) {
		r.SessionID = sessionID
	}
}

// WithFilters forwards retrieval filters. The server accepts them but does not apply them yet.
func WithFilters(filters map[string]any) QueryOption {
	return func(r *queryRequest) {
		r.Filters = filters
	}
}
