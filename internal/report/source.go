// Package report assembles gathered sources into a cited research
// report: source normalization, citation formatting, and LLM synthesis.
package report

import (
	"hash/fnv"

	"go.uber.org/zap"
)

// Source origin.
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// minDiverseSources is the count below which the report is likely thin.
const minDiverseSources = 6

// maxPerType caps each origin so one side cannot crowd out the other.
const maxPerType = 8

// Source is one piece of evidence feeding the report.
type Source struct {
	Content    string `json:"content"`
	Citation   string `json:"citation"`
	SourceType string `json:"source_type"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
}

// EnsureDiversity balances internal and external sources and drops
// near-duplicate content. Order within each origin is preserved.
func EnsureDiversity(sources []Source, logger *zap.Logger) []Source {
	if logger == nil {
		logger = zap.NewNop()
	}

	var internal, external []Source
	for _, s := range sources {
		switch s.SourceType {
		case SourceInternal:
			internal = append(internal, s)
		case SourceExternal:
			external = append(external, s)
		}
	}
	if len(internal) > maxPerType {
		internal = internal[:maxPerType]
	}
	if len(external) > maxPerType {
		external = external[:maxPerType]
	}

	balanced := append(append([]Source{}, internal...), external...)

	// Near-duplicates are detected on a content prefix: retrieval often
	// returns the same passage for adjacent plan steps.
	seen := make(map[uint64]struct{}, len(balanced))
	unique := balanced[:0]
	for _, s := range balanced {
		key := contentKey(s.Content)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, s)
	}

	if len(unique) < minDiverseSources {
		logger.Warn("few sources available for report",
			zap.Int("sources", len(unique)))
	}
	return unique
}

func contentKey(content string) uint64 {
	runes := []rune(content)
	if len(runes) > 200 {
		runes = runes[:200]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(runes)))
	return h.Sum64()
}
