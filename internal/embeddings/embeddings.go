// Package embeddings provides embedding generation via langchaingo.
//
// It wraps langchaingo's embedding support to map text to fixed-length
// vectors through any OpenAI-compatible endpoint: OpenAI, Azure OpenAI,
// or a local TEI (Text Embeddings Inference) server.
package embeddings

import (
	"context"
	"errors"
)

// Sentinel errors for embedding operations.
var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Embedder generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic
// meaning, enabling similarity search. The embedder is treated as an
// opaque oracle; researchd does not interpret vector contents.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns one embedding per input text, in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
