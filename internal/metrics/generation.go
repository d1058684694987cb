package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recipe generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefmate",
			Name:      "generation_requests_total",
			Help:      "Total number of recipe generation requests",
		},
		[]string{"provider", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chefmate",
			Name:      "generation_duration_seconds",
			Help:      "Recipe generation duration in seconds, including retries",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	GenerationRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefmate",
			Name:      "generation_retries_total",
			Help:      "Total retried generation attempts by failure class",
		},
		[]string{"provider", "reason"},
	)

	RAGRetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefmate",
			Name:      "rag_retrievals_total",
			Help:      "Total RAG context retrievals by outcome",
		},
		[]string{"outcome"}, // "hit", "miss", "degraded", "disabled"
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers generation metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(GenerationRetriesTotal)
	prometheus.MustRegister(RAGRetrievalsTotal)
	genMetricsRegistered = true
}
