package config

import (
	"time"

	"github.com/fyrsmithlabs/researchd/internal/logging"
	"github.com/fyrsmithlabs/researchd/internal/telemetry"
)

// Config holds the complete researchd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Corpus      CorpusConfig      `koanf:"corpus"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	LLM         LLMConfig         `koanf:"llm"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Search      SearchConfig      `koanf:"search"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Session     SessionConfig     `koanf:"session"`
	Logging     logging.Config    `koanf:"logging"`
	Telemetry   telemetry.Config  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CorpusConfig describes the watched document directory and chunking policy.
type CorpusConfig struct {
	// Dir is the root of the document corpus, walked recursively.
	Dir string `koanf:"dir"`

	// Extensions are the supported file extensions (lowercase, with dot).
	Extensions []string `koanf:"extensions"`

	// ChunkMaxChars is the maximum chunk length in characters.
	ChunkMaxChars int `koanf:"chunk_max_chars"`

	// ChunkOverlapChars is the overlap between consecutive chunks from the
	// same text block, in characters.
	ChunkOverlapChars int `koanf:"chunk_overlap_chars"`
}

// VectorStoreConfig holds vector index configuration.
type VectorStoreConfig struct {
	// Provider selects the backend: "chromem" (embedded, default) or "qdrant".
	Provider string `koanf:"provider"`

	// Path is the directory for chromem persistent storage.
	Path string `koanf:"path"`

	// Collection is the collection name isolating this corpus.
	Collection string `koanf:"collection"`

	// VectorSize is the embedding dimension; must match the embedder's output.
	VectorSize int `koanf:"vector_size"`

	// Qdrant connection settings (provider=qdrant only).
	QdrantHost   string `koanf:"qdrant_host"`
	QdrantPort   int    `koanf:"qdrant_port"`
	QdrantAPIKey string `koanf:"qdrant_api_key"`
	QdrantUseTLS bool   `koanf:"qdrant_use_tls"`
}

// EmbeddingConfig holds the embedding API configuration.
//
// Any OpenAI-compatible endpoint works: OpenAI, Azure OpenAI, or a local
// TEI server.
type EmbeddingConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
}

// LLMConfig holds the chat model configuration for planning and synthesis.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  string `koanf:"api_key"`
}

// RetrievalConfig holds retrieval defaults.
type RetrievalConfig struct {
	TopK          int     `koanf:"top_k"`
	MinSimilarity float64 `koanf:"min_similarity"`
}

// SearchConfig holds web search configuration.
type SearchConfig struct {
	BaseURL    string        `koanf:"base_url"`
	MaxResults int           `koanf:"max_results"`
	Timeout    time.Duration `koanf:"timeout"`
}

// IngestConfig holds ingestion pipeline configuration.
type IngestConfig struct {
	// RecordPath is the ingestion record file. If empty, it defaults to
	// <vectorstore.path>/<collection>_index.json.
	RecordPath string `koanf:"record_path"`

	// Watch enables the fsnotify corpus watcher.
	Watch bool `koanf:"watch"`

	// WatchDebounce coalesces filesystem events before triggering a sweep.
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// SessionConfig holds session store configuration.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}
