package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/vectorstore"
)

// testEmbedder returns deterministic normalized vectors for testing.
type testEmbedder struct {
	vectorSize int
}

func (e *testEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.makeEmbedding(text)
	}
	return vectors, nil
}

func (e *testEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.makeEmbedding(text), nil
}

// makeEmbedding creates a normalized embedding from a text hash.
// chromem requires normalized vectors.
func (e *testEmbedder) makeEmbedding(text string) []float32 {
	embedding := make([]float32, e.vectorSize)
	hash := 0
	for _, c := range text {
		hash = (hash*31 + int(c)) % 1000
	}
	var sumSq float32
	for i := range embedding {
		embedding[i] = float32((hash+i)%100) / 100.0
		sumSq += embedding[i] * embedding[i]
	}
	if sumSq > 0 {
		norm := float32(1.0) / sqrt32(sumSq)
		for i := range embedding {
			embedding[i] *= norm
		}
	}
	return embedding
}

func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	z := x / 2
	for i := 0; i < 10; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func newTestStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()

	config := vectorstore.ChromemConfig{
		Path:       t.TempDir(),
		Collection: "test_collection",
		VectorSize: 64,
	}

	store, err := vectorstore.NewChromemStore(config, &testEmbedder{vectorSize: 64}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func testDoc(id, content, filePath string, page, chunkIndex int) vectorstore.Document {
	return vectorstore.Document{
		ID:      id,
		Content: content,
		Metadata: map[string]interface{}{
			vectorstore.MetaFileName:   "doc.txt",
			vectorstore.MetaFilePath:   filePath,
			vectorstore.MetaPage:       page,
			vectorstore.MetaChunkIndex: chunkIndex,
			vectorstore.MetaPreview:    content,
		},
	}
}

func TestChromemConfig_ApplyDefaults(t *testing.T) {
	config := vectorstore.ChromemConfig{}
	config.ApplyDefaults()

	assert.Equal(t, "./chroma_store", config.Path)
	assert.Equal(t, "internal_docs", config.Collection)
	assert.Equal(t, 1536, config.VectorSize)
}

func TestNewChromemStore_RequiresEmbedder(t *testing.T) {
	_, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{Path: t.TempDir()}, nil, nil)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

func TestChromemStore_QueryEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_AddAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []vectorstore.Document{
		testDoc("c1", "transparency reporting for AI systems", "/data/doc.txt", 1, 0),
		testDoc("c2", "responsible deployment practices", "/data/doc.txt", 1, 1),
	}

	ids, err := store.AddDocuments(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.Query(ctx, "transparency reporting for AI systems", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Identical text must score at the top with similarity ~1.
	assert.Equal(t, "c1", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-3)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, "/data/doc.txt", results[0].Metadata[vectorstore.MetaFilePath])
}

func TestChromemStore_AddEmpty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyDocuments)
}

func TestChromemStore_DeleteByFilePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []vectorstore.Document{
		testDoc("a1", "alpha text", "/data/a.txt", 1, 0),
		testDoc("a2", "alpha continued", "/data/a.txt", 2, 0),
		testDoc("b1", "beta text", "/data/b.txt", 1, 0),
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteByFilePath(ctx, "/data/a.txt"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := store.Query(ctx, "beta text", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b1", results[0].ID)
}

func TestChromemStore_DeleteByFilePath_NoMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []vectorstore.Document{
		testDoc("a1", "alpha text", "/data/a.txt", 1, 0),
	})
	require.NoError(t, err)

	// Deleting an unknown path is a no-op.
	require.NoError(t, store.DeleteByFilePath(ctx, "/data/unknown.txt"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	config := vectorstore.ChromemConfig{Path: dir, Collection: "persist_test", VectorSize: 64}
	embedder := &testEmbedder{vectorSize: 64}

	store, err := vectorstore.NewChromemStore(config, embedder, zap.NewNop())
	require.NoError(t, err)
	_, err = store.AddDocuments(ctx, []vectorstore.Document{
		testDoc("p1", "durable content", "/data/p.txt", 1, 0),
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := vectorstore.NewChromemStore(config, embedder, zap.NewNop())
	require.NoError(t, err)

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := reopened.Query(ctx, "durable content", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].ID)
}

func TestChromemStore_QueryValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Query(context.Background(), "", 5)
	assert.Error(t, err)

	_, err = store.Query(context.Background(), "ok", 0)
	assert.Error(t, err)
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, vectorstore.ValidateCollectionName("internal_docs"))
	assert.NoError(t, vectorstore.ValidateCollectionName("research-2024"))
	assert.ErrorIs(t, vectorstore.ValidateCollectionName(""), vectorstore.ErrInvalidCollectionName)
	assert.ErrorIs(t, vectorstore.ValidateCollectionName("../escape"), vectorstore.ErrInvalidCollectionName)
}

func TestFactory_UnknownProvider(t *testing.T) {
	_, err := vectorstore.New(context.Background(), vectorstore.FactoryConfig{Provider: "pinecone"}, &testEmbedder{vectorSize: 8}, zap.NewNop())
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

func TestFactory_DefaultsToChromem(t *testing.T) {
	cfg := vectorstore.FactoryConfig{
		Chromem: vectorstore.ChromemConfig{Path: t.TempDir(), Collection: "factory_test", VectorSize: 64},
	}
	store, err := vectorstore.New(context.Background(), cfg, &testEmbedder{vectorSize: 64}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &vectorstore.ChromemStore{}, store)
}
