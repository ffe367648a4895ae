package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researchd_ingest_files_total",
		Help: "Corpus files processed by ingestion sweeps.",
	}, []string{"status"})

	chunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "researchd_ingest_chunks_indexed_total",
		Help: "Chunks written to the vector store.",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "researchd_ingest_sweep_duration_seconds",
		Help:    "Duration of full ingestion sweeps.",
		Buckets: prometheus.DefBuckets,
	})
)
