package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total /query requests by outcome",
		},
		[]string{"outcome"}, // "answered" / "fallback_answer" / "query_embedding_failed" / "invalid"
	)

	DocumentFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_fetch_total",
			Help:      "Session document fetches by result",
		},
		[]string{"result"}, // "ok" / "empty" / "error" / "skipped"
	)

	CandidatesUnavailableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_unavailable_total",
			Help:      "Candidate documents excluded from ranking for lack of a usable vector",
		},
	)

	BestScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "best_score",
			Help:      "Cosine similarity of the selected context document",
			Buckets:   []float64{-0.5, 0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus query pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(DocumentFetchTotal)
	prometheus.MustRegister(CandidatesUnavailableTotal)
	prometheus.MustRegister(BestScore)
	pipelineMetricsRegistered = true
}
