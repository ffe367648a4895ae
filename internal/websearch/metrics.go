package websearch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researchd_websearch_requests_total",
		Help: "Web search requests by result.",
	}, []string{"result"})

	resultsPerSearch = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "researchd_websearch_results_returned",
		Help:    "Hits scraped per successful search.",
		Buckets: []float64{0, 1, 2, 4, 6, 10},
	})
)
