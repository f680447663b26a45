package ragquery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for SDK calls.
const (
	outcomeOK          = "ok"
	outcomeClientError = "client_error" // 4xx: missing query, invalid or oversized body
	outcomeServerError = "server_error" // 5xx: embedding failures on the server
	outcomeNoAnswer    = "no_answer"
	outcomeTransport   = "transport"
)

// callOutcome maps an SDK call result onto the server's failure taxonomy.
// httpStatus is zero when no HTTP response was classified.
func callOutcome(err error) (outcome string, httpStatus int) {
	if err == nil {
		return outcomeOK, 0
	}
	if errors.Is(err, ErrNoAnswer) {
		return outcomeNoAnswer, http.StatusOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			return outcomeServerError, apiErr.Status
		}
		return outcomeClientError, apiErr.Status
	}
	return outcomeTransport, 0
}

type callMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newCallMetrics(reg prometheus.Registerer) (*callMetrics, error) {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ragquery",
		Subsystem: "sdk",
		Name:      "operations_total",
		Help:      "RAG service calls made by the SDK, by endpoint operation and outcome.",
	}, []string{"operation", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ragquery",
		Subsystem: "sdk",
		Name:      "operation_duration_seconds",
		Help:      "Round trip of a RAG service call, including server-side embedding and generation.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"operation"})

	var err error
	if calls, err = reuseCollector(reg, calls); err != nil {
		return nil, err
	}
	if duration, err = reuseCollector(reg, duration); err != nil {
		return nil, err
	}
	return &callMetrics{calls: calls, duration: duration}, nil
}

// reuseCollector registers c, or returns the collector a second client on the
// same registry already registered.
func reuseCollector[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("ragquery: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, fmt.Errorf("ragquery: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer records every call against the RAG service.
type observer struct {
	logger  *slog.Logger
	metrics *callMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newCallMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	outcome, httpStatus := callOutcome(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	switch outcome {
	case outcomeOK:
		o.logger.Debug("ragquery call succeeded", "op", op, "duration", dur)
	case outcomeNoAnswer:
		o.logger.Warn("ragquery returned no answer", "op", op, "duration", dur)
	default:
		o.logger.Warn("ragquery call failed",
			"op", op,
			"outcome", outcome,
			"http_status", httpStatus,
			"duration", dur,
			"error", err,
		)
	}
}
