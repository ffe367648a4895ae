package retrieval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researchd_retrieval_queries_total",
		Help: "Retrieval queries by result.",
	}, []string{"result"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "researchd_retrieval_query_duration_seconds",
		Help:    "End to end retrieval latency including embedding.",
		Buckets: prometheus.DefBuckets,
	})

	resultsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "researchd_retrieval_results_returned",
		Help:    "Results returned per query after threshold filtering.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})
)
