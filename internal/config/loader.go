// Package config provides configuration loading for researchd.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables, with hardcoded defaults filling any gaps.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/researchd/internal/logging"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CORPUS_DIR, RETRIEVAL_TOP_K, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables use an underscore separator and are uppercased;
// the first underscore splits section from field:
//
//	CORPUS_DIR -> corpus.dir
//	RETRIEVAL_MIN_SIMILARITY -> retrieval.min_similarity
//	VECTORSTORE_COLLECTION -> vectorstore.collection
//
// OPENAI_API_KEY is honored as a fallback for both embedding.api_key and
// llm.api_key, matching the convention of OpenAI-compatible clients.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// rawbytes provider avoids re-opening the file.
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// envTransform maps MYSECTION_FIELD_NAME to mysection.field_name.
// The split happens on the first underscore only.
func envTransform(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// applyDefaults fills unset fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Corpus.Dir == "" {
		cfg.Corpus.Dir = "./data"
	}
	if len(cfg.Corpus.Extensions) == 0 {
		cfg.Corpus.Extensions = []string{".pdf", ".txt", ".md"}
	}
	if cfg.Corpus.ChunkMaxChars == 0 {
		cfg.Corpus.ChunkMaxChars = 1200
	}
	if cfg.Corpus.ChunkOverlapChars == 0 {
		cfg.Corpus.ChunkOverlapChars = 200
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "chromem"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./chroma_store"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "internal_docs"
	}
	if cfg.VectorStore.VectorSize == 0 {
		cfg.VectorStore.VectorSize = 1536
	}
	if cfg.VectorStore.QdrantHost == "" {
		cfg.VectorStore.QdrantHost = "localhost"
	}
	if cfg.VectorStore.QdrantPort == 0 {
		cfg.VectorStore.QdrantPort = 6334
	}

	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = cfg.Embedding.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = 0.8
	}

	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 6
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 10 * time.Second
	}

	if cfg.Ingest.RecordPath == "" {
		cfg.Ingest.RecordPath = filepath.Join(cfg.VectorStore.Path, cfg.VectorStore.Collection+"_index.json")
	}
	if cfg.Ingest.WatchDebounce == 0 {
		cfg.Ingest.WatchDebounce = 2 * time.Second
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging = *logging.NewDefaultConfig()
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "researchd"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.SampleRate <= 0 {
		cfg.Telemetry.SampleRate = 1.0
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Corpus.ChunkMaxChars <= 0 {
		return errors.New("chunk_max_chars must be positive")
	}
	if c.Corpus.ChunkOverlapChars < 0 {
		return errors.New("chunk_overlap_chars cannot be negative")
	}
	if c.Corpus.ChunkOverlapChars >= c.Corpus.ChunkMaxChars {
		return fmt.Errorf("chunk_overlap_chars (%d) must be smaller than chunk_max_chars (%d)",
			c.Corpus.ChunkOverlapChars, c.Corpus.ChunkMaxChars)
	}
	if c.VectorStore.Provider != "chromem" && c.VectorStore.Provider != "qdrant" {
		return fmt.Errorf("invalid vectorstore provider %q (must be chromem or qdrant)", c.VectorStore.Provider)
	}
	if c.VectorStore.VectorSize <= 0 {
		return errors.New("vector_size must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval top_k must be positive")
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval min_similarity %v out of range [0,1]", c.Retrieval.MinSimilarity)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
