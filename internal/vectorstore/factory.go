package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/embeddings"
)

// Provider names accepted by the factory.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
)

// FactoryConfig selects and configures a Store backend.
type FactoryConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string

	Chromem ChromemConfig
	Qdrant  QdrantConfig
}

// New creates a Store for the configured provider.
func New(ctx context.Context, cfg FactoryConfig, embedder embeddings.Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Provider {
	case "", ProviderChromem:
		return NewChromemStore(cfg.Chromem, embedder, logger)
	case ProviderQdrant:
		return NewQdrantStore(ctx, cfg.Qdrant, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
