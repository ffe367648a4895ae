package embeddings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// embeddingRequests counts embedding API calls.
	// Labels: operation (documents, query), result (success, error)
	embeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Subsystem: "embeddings",
			Name:      "requests_total",
			Help:      "Total number of embedding API requests",
		},
		[]string{"operation", "result"},
	)

	// embeddingTexts counts texts embedded.
	embeddingTexts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "researchd",
			Subsystem: "embeddings",
			Name:      "texts_total",
			Help:      "Total number of texts embedded",
		},
	)

	// embeddingDuration tracks embedding request latency.
	embeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "researchd",
			Subsystem: "embeddings",
			Name:      "request_duration_seconds",
			Help:      "Duration of embedding API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func observeEmbedding(operation string, texts int, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	embeddingRequests.WithLabelValues(operation, result).Inc()
	embeddingDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err == nil {
		embeddingTexts.Add(float64(texts))
	}
}
