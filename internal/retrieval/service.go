// Package retrieval answers similarity queries against the vector store,
// applying top-k truncation and a minimum similarity threshold.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

var tracer = otel.Tracer("researchd.retrieval")

var ErrEmptyQuery = errors.New("query must not be empty")

// oversampleFloor keeps the candidate pool large enough for the threshold
// filter to matter even with tiny top-k values.
const oversampleFloor = 20

// Result is one retrieved chunk with its provenance.
type Result struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	Score    float32 `json:"score"`
	FileName string  `json:"file_name"`
	FilePath string  `json:"file_path"`
	Page     int     `json:"page"`
	Preview  string  `json:"preview"`
}

// Options overrides the service defaults for a single query. Zero values
// fall back to the configured defaults.
type Options struct {
	TopK     int
	MinScore float32
	hasMin   bool
}

// WithMinScore sets an explicit threshold, including zero.
func (o Options) WithMinScore(min float32) Options {
	o.MinScore = min
	o.hasMin = true
	return o
}

// Service retrieves the most similar indexed chunks for a query.
type Service struct {
	store    vectorstore.Store
	topK     int
	minScore float32
	logger   *zap.Logger
}

// NewService creates a retrieval service with per-query-overridable
// defaults for top-k and the similarity threshold.
func NewService(store vectorstore.Store, topK int, minScore float32, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve returns up to top-k chunks scoring at or above the threshold,
// ordered by descending similarity. An empty result is a valid answer:
// it means nothing indexed is similar enough, not that retrieval failed.
func (s *Service) Retrieve(ctx context.Context, query string, opts Options) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "Service.Retrieve")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	topK := s.topK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	minScore := s.minScore
	if opts.hasMin {
		minScore = opts.MinScore
	}

	span.SetAttributes(
		attribute.Int("top_k", topK),
		attribute.Float64("min_score", float64(minScore)),
	)

	// Oversample so that low-scoring candidates filtered out by the
	// threshold do not leave the caller short of top-k good ones.
	limit := topK * 5
	if limit < oversampleFloor {
		limit = oversampleFloor
	}

	start := time.Now()
	candidates, err := s.store.Query(ctx, query, limit)
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	results := make([]Result, 0, topK)
	for _, candidate := range candidates {
		if candidate.Score < minScore {
			continue
		}
		results = append(results, fromSearchResult(candidate))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	queriesTotal.WithLabelValues("ok").Inc()
	queryDuration.Observe(time.Since(start).Seconds())
	resultsReturned.Observe(float64(len(results)))

	s.logger.Debug("retrieval finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.Float32("min_score", minScore),
	)

	return results, nil
}

func fromSearchResult(sr vectorstore.SearchResult) Result {
	result := Result{
		ID:      sr.ID,
		Content: sr.Content,
		Score:   sr.Score,
	}
	if v, ok := sr.Metadata[vectorstore.MetaFileName].(string); ok {
		result.FileName = v
	}
	if v, ok := sr.Metadata[vectorstore.MetaFilePath].(string); ok {
		result.FilePath = v
	}
	if v, ok := sr.Metadata[vectorstore.MetaPreview].(string); ok {
		result.Preview = v
	}
	// Page arrives as a native number from qdrant and as a string from
	// chromem's string-typed metadata.
	switch v := sr.Metadata[vectorstore.MetaPage].(type) {
	case int:
		result.Page = v
	case int64:
		result.Page = int(v)
	case float64:
		result.Page = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			result.Page = n
		}
	}
	return result
}
