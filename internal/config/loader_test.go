package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/researchd/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{".pdf", ".txt", ".md"}, cfg.Corpus.Extensions)
	assert.Equal(t, 1200, cfg.Corpus.ChunkMaxChars)
	assert.Equal(t, 200, cfg.Corpus.ChunkOverlapChars)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
	assert.Equal(t, "internal_docs", cfg.VectorStore.Collection)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.8, cfg.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, 6, cfg.Search.MaxResults)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, filepath.Join("./chroma_store", "internal_docs_index.json"), cfg.Ingest.RecordPath)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
corpus:
  dir: /srv/docs
  chunk_max_chars: 800
  chunk_overlap_chars: 100
retrieval:
  top_k: 5
  min_similarity: 0.5
vectorstore:
  collection: research_docs
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/docs", cfg.Corpus.Dir)
	assert.Equal(t, 800, cfg.Corpus.ChunkMaxChars)
	assert.Equal(t, 100, cfg.Corpus.ChunkOverlapChars)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.InDelta(t, 0.5, cfg.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, "research_docs", cfg.VectorStore.Collection)
	// Record path follows the overridden collection name.
	assert.Equal(t, filepath.Join("./chroma_store", "research_docs_index.json"), cfg.Ingest.RecordPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 5\n"), 0o600))

	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("CORPUS_DIR", "/env/docs")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, "/env/docs", cfg.Corpus.Dir)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "chromem", cfg.VectorStore.Provider)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad port", func(c *config.Config) { c.Server.Port = -1 }},
		{"zero chunk size", func(c *config.Config) { c.Corpus.ChunkMaxChars = 0 }},
		{"overlap >= size", func(c *config.Config) { c.Corpus.ChunkOverlapChars = c.Corpus.ChunkMaxChars }},
		{"bad provider", func(c *config.Config) { c.VectorStore.Provider = "pinecone" }},
		{"similarity > 1", func(c *config.Config) { c.Retrieval.MinSimilarity = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
